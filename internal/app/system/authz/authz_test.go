package authz_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/auth"
	"github.com/dalemusser/campushub/internal/app/system/authz"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
)

// docs is an Authorizer backed by a map of profile documents.
type docs map[string]models.Profile

func (d docs) Authorize(_ context.Context, uid string, roles ...string) (models.Profile, error) {
	if uid == "down" {
		return models.Profile{}, apperr.Upstream("test", apperr.SideDocument, errors.New("store down"))
	}
	p, ok := d[uid]
	if !ok {
		return models.Profile{}, apperr.Forbidden("test", "no profile")
	}
	if len(roles) == 0 {
		return p, nil
	}
	for _, r := range roles {
		if r == p.Role {
			return p, nil
		}
	}
	return models.Profile{}, apperr.Forbidden("test", "wrong role")
}

var echoRole = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p, _ := authz.Profile(r)
	w.Write([]byte(p.Role))
})

func serve(t *testing.T, d docs, u *auth.TokenUser, roles ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/locations", nil)
	if u != nil {
		req = auth.WithTestUser(req, u)
	}
	rec := httptest.NewRecorder()
	authz.RequireRole(d, zap.NewNop(), roles...)(echoRole).ServeHTTP(rec, req)
	return rec
}

func TestRequireRole(t *testing.T) {
	d := docs{
		"admin-1": {UID: "admin-1", Role: models.RoleAdmin},
		"priv-1":  {UID: "priv-1", Role: models.RolePrivileged},
		"user-1":  {UID: "user-1", Role: models.RoleUnprivileged},
	}

	tests := []struct {
		name       string
		user       *auth.TokenUser
		roles      []string
		wantStatus int
	}{
		{"anonymous", nil, authz.Managers, http.StatusUnauthorized},
		{"admin passes", &auth.TokenUser{UID: "admin-1"}, authz.Managers, http.StatusOK},
		{"privileged passes", &auth.TokenUser{UID: "priv-1"}, authz.Managers, http.StatusOK},
		{"privileged not admin", &auth.TokenUser{UID: "priv-1"}, []string{models.RoleAdmin}, http.StatusForbidden},
		{"unprivileged refused", &auth.TokenUser{UID: "user-1"}, authz.Managers, http.StatusForbidden},
		{"no profile", &auth.TokenUser{UID: "ghost"}, authz.Managers, http.StatusForbidden},
		{"store down", &auth.TokenUser{UID: "down"}, authz.Managers, http.StatusServiceUnavailable},
		{"any role", &auth.TokenUser{UID: "user-1"}, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, d, tt.user, tt.roles...)
			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestRequireRole_IgnoresTokenClaims(t *testing.T) {
	d := docs{"user-1": {UID: "user-1", Role: models.RoleUnprivileged}}

	// A token minted while the user was still an admin.
	stale := &auth.TokenUser{UID: "user-1", Claims: models.Claims{Role: models.RoleAdmin}}
	rec := serve(t, d, stale, models.RoleAdmin)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequireRole_ExposesDocumentProfile(t *testing.T) {
	d := docs{"priv-1": {UID: "priv-1", Role: models.RolePrivileged}}

	// Token still says unprivileged; the document says privileged.
	u := &auth.TokenUser{UID: "priv-1", Claims: models.Claims{Role: models.RoleUnprivileged}}
	rec := serve(t, d, u, authz.Managers...)

	if rec.Code != http.StatusOK || rec.Body.String() != models.RolePrivileged {
		t.Errorf("got %d %q, want 200 %q", rec.Code, rec.Body.String(), models.RolePrivileged)
	}
}

func TestHelpers(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if authz.IsAdmin(req) || authz.CanManage(req) {
		t.Error("expected false without a loaded profile")
	}

	req = authz.WithProfile(req, models.Profile{Role: models.RolePrivileged})
	if authz.IsAdmin(req) {
		t.Error("privileged is not admin")
	}
	if !authz.CanManage(req) {
		t.Error("privileged can manage")
	}
}
