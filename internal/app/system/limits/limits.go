// internal/app/system/limits/limits.go
package limits

// Request body size limits.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody is the largest JSON request body any endpoint accepts.
	// Location descriptions and meta are the biggest payloads.
	MaxJSONBody = 64 << 10 // 64 KB

	// MaxSearchQuery is the longest free-text search query accepted.
	MaxSearchQuery = 200
)
