package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/campushub/internal/app/system/identity"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/google/uuid"
)

// ErrProviderDown is returned by FakeProvider calls that were told to fail.
var ErrProviderDown = errors.New("fake provider: unavailable")

// FakeProvider is an in-memory identity.Provider.
//
// Tokens behave like real ones: IssueToken snapshots the subject's claims at
// issue time, so a token issued before SetClaims keeps the old values.
type FakeProvider struct {
	mu         sync.Mutex
	identities map[string]bool
	claims     map[string]models.Claims
	tokens     map[string]identity.Verified

	failSetClaims int
	failDelete    int
	setCalls      int
	deleteCalls   int
}

var _ identity.Provider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		identities: make(map[string]bool),
		claims:     make(map[string]models.Claims),
		tokens:     make(map[string]identity.Verified),
	}
}

// FailSetClaims makes the next n SetClaims calls fail.
func (f *FakeProvider) FailSetClaims(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSetClaims = n
}

// FailDelete makes the next n DeleteIdentity calls fail.
func (f *FakeProvider) FailDelete(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDelete = n
}

// IssueToken signs uid in and returns a bearer token carrying the claims
// the provider holds right now.
func (f *FakeProvider) IssueToken(uid string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := uuid.NewString()
	f.identities[uid] = true
	f.tokens[tok] = identity.Verified{SubjectID: uid, Claims: copyClaims(f.claims[uid])}
	return tok
}

// Claims returns the claims currently stored for uid.
func (f *FakeProvider) Claims(uid string) (models.Claims, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.claims[uid]
	return copyClaims(c), ok
}

// HasIdentity reports whether uid exists at the provider.
func (f *FakeProvider) HasIdentity(uid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identities[uid]
}

// SetClaimsCalls is the number of SetClaims calls seen, failed ones included.
func (f *FakeProvider) SetClaimsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

// DeleteCalls is the number of DeleteIdentity calls seen, failed ones included.
func (f *FakeProvider) DeleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func (f *FakeProvider) SetClaims(ctx context.Context, uid string, c models.Claims) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.failSetClaims > 0 {
		f.failSetClaims--
		return ErrProviderDown
	}
	f.identities[uid] = true
	f.claims[uid] = copyClaims(c)
	return nil
}

func (f *FakeProvider) VerifyToken(ctx context.Context, token string) (identity.Verified, error) {
	if err := ctx.Err(); err != nil {
		return identity.Verified{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.tokens[token]
	if !ok || !f.identities[v.SubjectID] {
		return identity.Verified{}, identity.ErrInvalidToken
	}
	return identity.Verified{SubjectID: v.SubjectID, Claims: copyClaims(v.Claims)}, nil
}

func (f *FakeProvider) CreateIdentity(ctx context.Context, uid, email, displayName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identities[uid] = true
	return nil
}

func (f *FakeProvider) DeleteIdentity(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete > 0 {
		f.failDelete--
		return ErrProviderDown
	}
	delete(f.identities, uid)
	delete(f.claims, uid)
	return nil
}

func copyClaims(c models.Claims) models.Claims {
	out := c
	out.Interests = append([]string(nil), c.Interests...)
	if c.PhotoURL != nil {
		p := *c.PhotoURL
		out.PhotoURL = &p
	}
	return out
}
