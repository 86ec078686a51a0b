// Package httpjson writes JSON responses and turns classified errors into
// HTTP statuses.
package httpjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/limits"
	"github.com/dalemusser/campushub/internal/app/system/requestlog"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Side    string `json:"side,omitempty"`
}

// Write encodes v as the response body with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an error body with an explicit status and code.
func WriteError(w http.ResponseWriter, status int, code, msg string) {
	Write(w, status, ErrorBody{Error: code, Message: msg})
}

// Error maps err to its status and writes it. Server-side failures are
// logged; their messages are not echoed to the client.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code := Classify(err)
	body := ErrorBody{Error: code, Message: message(err), Side: apperr.SideOf(err)}

	if status >= 500 {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestlog.ID(r.Context())),
			zap.String("code", code),
			zap.Error(err))
		if status == http.StatusInternalServerError && code == "internal" {
			body.Message = "internal error"
		}
		if status == http.StatusServiceUnavailable {
			body.Message = "a backing service is unavailable; retry later"
		}
	}
	Write(w, status, body)
}

// Classify returns the HTTP status and error code for err.
func Classify(err error) (int, string) {
	switch apperr.KindOf(err) {
	case apperr.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case apperr.ErrConflict:
		return http.StatusConflict, "conflict"
	case apperr.ErrCapacityExceeded:
		return http.StatusConflict, "capacity_exceeded"
	case apperr.ErrInvalidState:
		return http.StatusConflict, "invalid_state"
	case apperr.ErrValidation:
		return http.StatusBadRequest, "validation_error"
	case apperr.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case apperr.ErrScanLimit:
		return http.StatusInternalServerError, "scan_limit"
	case apperr.ErrUpstreamUnavailable:
		return http.StatusServiceUnavailable, "upstream_unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

func message(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

// Decode reads a JSON body of at most limits.MaxJSONBody bytes into v.
// Unknown fields, trailing data and oversized bodies are validation errors.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "http.decode"

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.Validation(op, "request body exceeds %d bytes", limits.MaxJSONBody)
		case errors.Is(err, io.EOF):
			return apperr.Validation(op, "request body is empty")
		default:
			return apperr.Validation(op, "invalid JSON: %s", err.Error())
		}
	}
	if dec.More() {
		return apperr.Validation(op, "request body must hold a single JSON object")
	}
	return nil
}

// BadParam is a validation error for a malformed path or query parameter.
func BadParam(name string, value any) error {
	return apperr.Validation("http.param", "invalid %s %q", name, fmt.Sprint(value))
}
