package profiles

import (
	"net/http"

	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/claimsync"
	"github.com/dalemusser/campushub/internal/app/system/httpjson"
	"github.com/dalemusser/campushub/internal/domain/models"
)

type createInput struct {
	UID       string   `json:"uid"` // defaults to the caller
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Interests []string `json:"interests"`
	PhotoURL  *string  `json:"photo_url"`
}

type patchInput struct {
	Name      *string   `json:"name"`
	Role      *string   `json:"role"`
	Interests *[]string `json:"interests"`
	PhotoURL  *string   `json:"photo_url"`
	Email     *string   `json:"email"`
	UID       *string   `json:"uid"`
}

// ServeProfile handles GET /profiles/{uid}. Users read their own profile;
// admins read anyone's.
func (h *Handler) ServeProfile(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	p, err := h.Sync.GetProfile(r.Context(), caller(r), uid)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// HandleCreate handles POST /profiles.
//
// When the document is stored but the claims write fails the response is
// 503 with side "claims"; the document stands and the reconciler finishes.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	c := caller(r)
	if in.UID == "" {
		in.UID = c.UID
	}

	p, err := h.Sync.CreateProfile(r.Context(), c, claimsync.Input{
		UID:       in.UID,
		Name:      in.Name,
		Email:     in.Email,
		Role:      in.Role,
		Interests: in.Interests,
		PhotoURL:  in.PhotoURL,
	})
	if p.UID != "" {
		h.Audit.ProfileCreated(r.Context(), r, c.UID, p)
	}
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.Header().Set("Location", "/profiles/"+p.UID)
	httpjson.Write(w, http.StatusCreated, p)
}

// HandleUpdate handles PATCH /profiles/{uid}. Email and uid are immutable.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	var in patchInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	c := caller(r)

	// Read the current role first so a role change can be audited.
	var before models.Profile
	if in.Role != nil {
		before, err = h.Sync.GetProfile(r.Context(), c, uid)
		if err != nil {
			httpjson.Error(w, r, h.Log, err)
			return
		}
	}

	p, err := h.Sync.UpdateProfile(r.Context(), c, uid, claimsync.Patch{
		Name:      in.Name,
		Role:      in.Role,
		Interests: in.Interests,
		PhotoURL:  in.PhotoURL,
		Email:     in.Email,
		UID:       in.UID,
	})
	if p.UID != "" {
		h.Audit.ProfileUpdated(r.Context(), r, c.UID, p)
		if in.Role != nil && before.Role != p.Role {
			h.Audit.RoleChanged(r.Context(), r, c.UID, p.UID, before.Role, p.Role)
		}
	}
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /profiles/{uid}.
//
// The document is gone once this returns anything but a document-side
// error. A 503 with side "identity" means the provider account is still
// there; the reconciler keeps trying.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	c := caller(r)

	err = h.Sync.DeleteProfile(r.Context(), c, uid)
	if err == nil || apperr.SideOf(err) == apperr.SideIdentity {
		h.Audit.ProfileDeleted(r.Context(), r, c.UID, uid, err)
	}
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefreshClaims handles POST /profiles/{uid}/claims/refresh. It
// rewrites the provider claims from the document; the caller then fetches
// a new token to see them.
func (h *Handler) HandleRefreshClaims(w http.ResponseWriter, r *http.Request) {
	uid, err := uidParam(r)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	if _, err := h.Sync.GetProfile(r.Context(), caller(r), uid); err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}

	p, err := h.Sync.RefreshClaims(r.Context(), uid)
	if err != nil {
		httpjson.Error(w, r, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}
