// Package identity is the boundary to the external identity provider.
//
// The provider owns sign-in and issues tokens that embed custom claims. The
// profiles collection is the source of truth for everything in those claims;
// see package claimsync for how the two are kept in step.
package identity

import (
	"context"
	"errors"

	"github.com/dalemusser/campushub/internal/domain/models"
)

// ErrInvalidToken is returned by VerifyToken for malformed, expired,
// revoked or otherwise unverifiable tokens.
var ErrInvalidToken = errors.New("invalid token")

// Verified is the result of a successful token check. Claims are the values
// embedded when the token was issued and may lag the profile document.
type Verified struct {
	SubjectID string
	Claims    models.Claims
}

// Provider is the subset of identity-provider operations the application uses.
type Provider interface {
	// SetClaims replaces the custom claims for uid. Tokens issued from now
	// on carry them; tokens already issued keep their old claims.
	SetClaims(ctx context.Context, uid string, c models.Claims) error

	VerifyToken(ctx context.Context, token string) (Verified, error)

	// CreateIdentity registers uid with the provider. An identity that
	// already exists is not an error.
	CreateIdentity(ctx context.Context, uid, email, displayName string) error

	// DeleteIdentity removes uid. A missing identity is not an error.
	DeleteIdentity(ctx context.Context, uid string) error
}
