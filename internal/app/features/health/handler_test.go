package health_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/campushub/internal/app/features/health"
	profilestore "github.com/dalemusser/campushub/internal/app/store/profiles"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/campushub/internal/testutil"
	"go.uber.org/zap"
)

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Backlog  *struct {
		ClaimsPending    int64 `json:"claims_pending"`
		DeletionsPending int64 `json:"deletions_pending"`
	} `json:"backlog"`
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	profiles := profilestore.New(db)
	fix := testutil.NewFixtures(t, db)
	p := fix.CreateProfile(ctx, "u1", "User", models.RoleUnprivileged)
	if err := profiles.InvalidateClaims(ctx, p.UID); err != nil {
		t.Fatalf("InvalidateClaims failed: %v", err)
	}
	if err := profiles.AddTombstone(ctx, "gone"); err != nil {
		t.Fatalf("AddTombstone failed: %v", err)
	}

	handler := health.NewHandler(db.Client(), profiles, zap.NewNop())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Serve(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}

	var got response
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Status != "ok" {
		t.Errorf("status: got %q, want %q", got.Status, "ok")
	}
	if got.Database != "connected" {
		t.Errorf("database: got %q, want %q", got.Database, "connected")
	}
	if got.Backlog == nil {
		t.Fatal("expected a backlog section")
	}
	if got.Backlog.ClaimsPending != 1 || got.Backlog.DeletionsPending != 1 {
		t.Errorf("backlog: got %+v, want 1 claims and 1 deletion", *got.Backlog)
	}
}

func TestServe_WithoutProfiles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusOK)
	}
	var got response
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Backlog != nil {
		t.Errorf("backlog: got %+v, want none", *got.Backlog)
	}
}

func TestRoutes_HeadProbe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	r := health.Routes(health.NewHandler(db.Client(), nil, zap.NewNop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("HEAD status: got %d, want %d", rec.Code, http.StatusOK)
	}
}
