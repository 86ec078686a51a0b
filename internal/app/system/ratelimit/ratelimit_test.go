package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/ratelimit"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/campushub/internal/testutil"
	"go.uber.org/zap"
)

func TestLimiter_Allow(t *testing.T) {
	l := ratelimit.New(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("a"); !ok {
			t.Fatalf("request %d: refused, want allowed", i+1)
		}
	}
	ok, wait := l.Allow("a")
	if ok {
		t.Error("fourth request: allowed, want refused")
	}
	if wait <= 0 || wait > time.Minute {
		t.Errorf("wait: got %v, want within (0, 1m]", wait)
	}
	if got := l.Remaining("a"); got != 0 {
		t.Errorf("Remaining(a): got %d, want 0", got)
	}

	// Keys are independent.
	if ok, _ := l.Allow("b"); !ok {
		t.Error("other key: refused, want allowed")
	}
	if got := l.Remaining("b"); got != 2 {
		t.Errorf("Remaining(b): got %d, want 2", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := ratelimit.New(1, 20*time.Millisecond)
	defer l.Stop()

	if ok, _ := l.Allow("k"); !ok {
		t.Fatal("first request refused")
	}
	if ok, _ := l.Allow("k"); ok {
		t.Fatal("second request allowed inside the window")
	}
	time.Sleep(30 * time.Millisecond)
	if ok, _ := l.Allow("k"); !ok {
		t.Error("request after the window: refused, want allowed")
	}
}

func TestNew_Disabled(t *testing.T) {
	l := ratelimit.New(0, time.Minute)
	if l != nil {
		t.Fatal("limit 0 should disable limiting")
	}
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("x"); !ok {
			t.Fatal("nil limiter refused a request")
		}
	}
	l.Stop()
}

func TestMiddleware(t *testing.T) {
	l := ratelimit.New(1, time.Minute)
	defer l.Stop()

	h := ratelimit.Middleware(l, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(uid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/events/x/registration", nil)
		if uid != "" {
			req = testutil.WithUser(req, uid, models.Claims{})
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("u1"); rec.Code != http.StatusNoContent {
		t.Errorf("first: got %d, want %d", rec.Code, http.StatusNoContent)
	}
	rec := send("u1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
	if rec := send("u2"); rec.Code != http.StatusNoContent {
		t.Errorf("other user: got %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:1234", "198.51.100.4"},
		{"remote with port", nil, "192.0.2.9:5555", "192.0.2.9"},
		{"remote without port", nil, "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ratelimit.ClientIP(req); got != tt.want {
				t.Errorf("ClientIP: got %q, want %q", got, tt.want)
			}
		})
	}
}
