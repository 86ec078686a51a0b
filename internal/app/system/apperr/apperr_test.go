package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", NotFound("events.get", "event %s", "abc"), ErrNotFound},
		{"conflict", Conflict("events.register", "already registered"), ErrConflict},
		{"capacity", CapacityExceeded("events.register", "full"), ErrCapacityExceeded},
		{"state", InvalidState("events.register", "cancelled"), ErrInvalidState},
		{"validation", Validation("locations.create", "name required"), ErrValidation},
		{"forbidden", Forbidden("profiles.create", "admin only"), ErrForbidden},
		{"scan", ScanLimit("locations.scan", "more than %d", 10), ErrScanLimit},
		{"upstream", Upstream("profiles.create", SideClaims, errors.New("boom")), ErrUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if KindOf(tt.err) != tt.kind {
				t.Errorf("KindOf = %v, want %v", KindOf(tt.err), tt.kind)
			}
			wrapped := fmt.Errorf("handler: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("kind lost through wrapping")
			}
		})
	}
}

func TestUpstreamKeepsCauseAndSide(t *testing.T) {
	cause := errors.New("provider down")
	err := Upstream("profiles.update", SideClaims, cause)

	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if SideOf(err) != SideClaims {
		t.Errorf("SideOf = %q, want %q", SideOf(err), SideClaims)
	}
	want := "profiles.update: upstream unavailable (claims): provider down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStore(t *testing.T) {
	if Store("x", nil) != nil {
		t.Error("nil should stay nil")
	}
	if !errors.Is(Store("x", mongo.ErrNoDocuments), ErrNotFound) {
		t.Error("ErrNoDocuments should become NotFound")
	}
	if !errors.Is(Store("x", errors.New("socket closed")), ErrUpstreamUnavailable) {
		t.Error("raw errors should become UpstreamUnavailable")
	}
	orig := Conflict("x", "dup")
	if Store("y", orig) != orig {
		t.Error("classified errors should pass through untouched")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(context.DeadlineExceeded) {
		t.Error("deadline exceeded is transient")
	}
	if IsTransient(errors.New("bad input")) {
		t.Error("plain error is not transient")
	}
	if IsTransient(nil) {
		t.Error("nil is not transient")
	}
}
