// Package claimsync keeps a user's token claims in step with their profile
// document.
//
// The profile document is the source of truth. Every write goes to the
// document first and then copies the derived claims to the identity
// provider, so the two sides can disagree for a while: the claims may trail
// the document until the copy succeeds, and a token issued before the copy
// carries the old claims until it expires. Nothing in this service trusts
// token claims for authorization; Authorize reads the document.
package claimsync

import (
	"context"
	"errors"

	profilestore "github.com/dalemusser/campushub/internal/app/store/profiles"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/identity"
	"github.com/dalemusser/campushub/internal/app/system/metrics"
	"github.com/dalemusser/campushub/internal/app/system/retry"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
)

// errMoved means the document changed between reading it and recording the
// claims write; the loop goes round again with the newer version.
var errMoved = errors.New("profile changed while syncing claims")

// Caller identifies who is asking. System callers (startup, the reconciler)
// skip the privilege checks.
type Caller struct {
	UID    string
	System bool
}

// System is the caller used by internal jobs.
var System = Caller{System: true}

// Synchronizer performs every profile write.
type Synchronizer struct {
	profiles *profilestore.Store
	provider identity.Provider
	policy   retry.Policy
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func New(profiles *profilestore.Store, provider identity.Provider, policy retry.Policy, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		profiles: profiles,
		provider: provider,
		policy:   policy,
		log:      logger,
	}
}

// SetMetrics enables claims-sync metrics. A nil m turns them off.
func (s *Synchronizer) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// Authorize loads uid's profile document and checks its role against roles.
// With no roles any existing profile passes. A missing profile is Forbidden,
// not NotFound; the caller is the one being checked.
func (s *Synchronizer) Authorize(ctx context.Context, uid string, roles ...string) (models.Profile, error) {
	const op = "claimsync.authorize"

	if uid == "" {
		return models.Profile{}, apperr.Forbidden(op, "not signed in")
	}
	p, err := s.profiles.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Profile{}, apperr.Forbidden(op, "no profile for %s", uid)
		}
		return models.Profile{}, err
	}
	if len(roles) == 0 {
		return p, nil
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	return models.Profile{}, apperr.Forbidden(op, "role %q may not do this", p.Role)
}

// GetProfile returns uid's profile to its owner or an admin.
func (s *Synchronizer) GetProfile(ctx context.Context, caller Caller, uid string) (models.Profile, error) {
	if !caller.System && caller.UID != uid {
		if _, err := s.Authorize(ctx, caller.UID, models.RoleAdmin); err != nil {
			return models.Profile{}, err
		}
	}
	return s.profiles.Get(ctx, uid)
}

// RefreshClaims rewrites uid's claims from the document even if they are
// believed current.
func (s *Synchronizer) RefreshClaims(ctx context.Context, uid string) (models.Profile, error) {
	return s.syncClaims(ctx, "claimsync.refresh", uid, true)
}

// ReconcileClaims finishes an outstanding claims write for uid, if any.
func (s *Synchronizer) ReconcileClaims(ctx context.Context, uid string) (models.Profile, error) {
	return s.syncClaims(ctx, "claimsync.reconcile", uid, false)
}

// syncClaims copies the document's claims to the provider and records the
// version written. If the document moves on before the version is recorded,
// it loops so the newest document is what ends up in the claims.
//
// A claims write that lost a race to a newer one may land after it; when
// the loop cannot confirm a write it marks the profile pending again so the
// reconciler rewrites it.
func (s *Synchronizer) syncClaims(ctx context.Context, op, uid string, force bool) (models.Profile, error) {
	var (
		out       models.Profile
		unconfirm bool
	)
	err := retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		p, err := s.profiles.Get(ctx, uid)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return retry.Stop(err)
			}
			return err
		}
		if !force && !unconfirm && !p.ClaimsPending() {
			out = p
			return nil
		}

		if p.ClaimsVersion == 0 {
			if err := s.provider.CreateIdentity(ctx, p.UID, p.Email, p.Name); err != nil {
				return apperr.Upstream(op, apperr.SideClaims, err)
			}
		}
		if err := s.provider.SetClaims(ctx, uid, models.ClaimsOf(p)); err != nil {
			return apperr.Upstream(op, apperr.SideClaims, err)
		}
		unconfirm = true

		ok, err := s.profiles.MarkClaimsSynced(ctx, uid, p.Version)
		if err != nil {
			return err
		}
		if !ok {
			force = false
			return errMoved
		}
		unconfirm = false
		p.ClaimsVersion = p.Version
		out = p
		return nil
	})

	s.metrics.ClaimsSynced(err == nil)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Profile{}, err
	}

	if unconfirm {
		if ierr := s.profiles.InvalidateClaims(context.WithoutCancel(ctx), uid); ierr != nil {
			s.log.Warn("could not mark claims pending",
				zap.String("uid", uid), zap.Error(ierr))
		}
	}
	s.log.Error("claims sync gave up; reconciler will retry",
		zap.String("uid", uid),
		zap.String("operation", op),
		zap.Error(err))

	if errors.Is(err, errMoved) || !apperr.Classified(err) {
		err = apperr.Upstream(op, apperr.SideClaims, err)
	}
	return models.Profile{}, err
}
