// Package apperr defines the failure kinds returned by the stores and the
// claims synchronizer. Callers match kinds with errors.Is against the
// sentinel values; *Error carries the operation and, for multi-step writes,
// which side failed.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kinds.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrCapacityExceeded    = errors.New("capacity exceeded")
	ErrInvalidState        = errors.New("invalid state")
	ErrValidation          = errors.New("validation error")
	ErrForbidden           = errors.New("forbidden")
	ErrScanLimit           = errors.New("scan limit exceeded")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Sides of a dual write.
const (
	SideDocument = "document"
	SideClaims   = "claims"
	SideIdentity = "identity"
)

// Error is a classified failure.
type Error struct {
	Kind error  // one of the sentinel kinds above
	Op   string // e.g. "events.register"
	Side string // set for dual-write failures
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Side != "" {
		b.WriteString(" (")
		b.WriteString(e.Side)
		b.WriteString(")")
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newErr(kind error, op, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func NotFound(op, format string, args ...any) error {
	return newErr(ErrNotFound, op, format, args...)
}

func Conflict(op, format string, args ...any) error {
	return newErr(ErrConflict, op, format, args...)
}

func CapacityExceeded(op, format string, args ...any) error {
	return newErr(ErrCapacityExceeded, op, format, args...)
}

func InvalidState(op, format string, args ...any) error {
	return newErr(ErrInvalidState, op, format, args...)
}

func Validation(op, format string, args ...any) error {
	return newErr(ErrValidation, op, format, args...)
}

func Forbidden(op, format string, args ...any) error {
	return newErr(ErrForbidden, op, format, args...)
}

func ScanLimit(op, format string, args ...any) error {
	return newErr(ErrScanLimit, op, format, args...)
}

// Upstream wraps a store or provider failure. side may be empty.
func Upstream(op, side string, err error) error {
	return &Error{Kind: ErrUpstreamUnavailable, Op: op, Side: side, Err: err}
}

// Classified reports whether err already carries one of the kinds.
func Classified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Store classifies a raw MongoDB error. mongo.ErrNoDocuments becomes
// NotFound; everything else (timeouts, network, server errors) is treated
// as the store being unavailable. Already-classified errors pass through.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &Error{Kind: ErrNotFound, Op: op, Err: err}
	}
	return Upstream(op, SideDocument, err)
}

// IsTransient reports whether err is a timeout or connectivity failure that
// is safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

// KindOf returns the sentinel kind of err, or nil when err is unclassified.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// SideOf returns the failing side of a dual-write error, or "".
func SideOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Side
	}
	return ""
}
