// Package paging provides page-number pagination helpers for list endpoints.
package paging

import (
	"strconv"
	"strings"
)

// PageSize is the default number of rows per page.
const PageSize = 50

// Info describes where a page sits in a result set.
type Info struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

// ParsePage parses a 1-based page number. Empty, malformed, or
// non-positive input yields page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Offset returns the number of rows to skip for page.
func Offset(page, size int) int64 {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = PageSize
	}
	return int64(page-1) * int64(size)
}

// Compute builds the Info for page given the total row count.
func Compute(page, size int, total int64) Info {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = PageSize
	}
	pages := int((total + int64(size) - 1) / int64(size))
	if pages < 1 {
		pages = 1
	}
	return Info{
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		Total:      total,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}
