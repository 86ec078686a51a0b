package models

import "time"

// Profile roles.
const (
	RoleUnprivileged = "unprivileged"
	RolePrivileged   = "privileged"
	RoleAdmin        = "admin"
)

// IsRole reports whether r is a known role.
func IsRole(r string) bool {
	switch r {
	case RoleUnprivileged, RolePrivileged, RoleAdmin:
		return true
	}
	return false
}

// Profile is the authoritative user document. Its _id is the identity
// provider's subject id.
//
// NOTE:
//   - Claims on issued tokens are a cache of this document.
//   - ClaimsVersion trails Version while a claims write is outstanding.
type Profile struct {
	UID       string   `bson:"_id" json:"uid"`
	Name      string   `bson:"name" json:"name"`
	Email     string   `bson:"email" json:"email"`
	Role      string   `bson:"role" json:"role"` // unprivileged | privileged | admin
	Interests []string `bson:"interests,omitempty" json:"interests,omitempty"`
	PhotoURL  *string  `bson:"photo_url" json:"photo_url"`

	Version       int64 `bson:"version" json:"version"`
	ClaimsVersion int64 `bson:"claims_version" json:"claims_version"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ClaimsPending reports whether the provider has not yet seen the latest version.
func (p Profile) ClaimsPending() bool {
	return p.ClaimsVersion != p.Version
}

// Claims is the token-embedded copy of a profile's authorization attributes.
type Claims struct {
	Role      string   `json:"role"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Interests []string `json:"interests,omitempty"`
	PhotoURL  *string  `json:"photo_url,omitempty"`
}

// ClaimsOf derives the claims payload for p.
func ClaimsOf(p Profile) Claims {
	return Claims{
		Role:      p.Role,
		Name:      p.Name,
		Email:     p.Email,
		Interests: append([]string(nil), p.Interests...),
		PhotoURL:  p.PhotoURL,
	}
}

// IdentityDeletion is the tombstone kept while a provider identity is being removed.
type IdentityDeletion struct {
	UID         string    `bson:"_id"`
	RequestedAt time.Time `bson:"requested_at"`
	Attempts    int       `bson:"attempts"`
	LastError   string    `bson:"last_error,omitempty"`
}
