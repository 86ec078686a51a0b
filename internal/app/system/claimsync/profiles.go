package claimsync

import (
	"context"
	"errors"
	"strings"

	profilestore "github.com/dalemusser/campushub/internal/app/store/profiles"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/inputval"
	"github.com/dalemusser/campushub/internal/app/system/normalize"
	"github.com/dalemusser/campushub/internal/app/system/retry"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
)

const (
	maxNameLen     = 200
	maxInterests   = 50
	maxInterestLen = 64
	maxPhotoURLLen = 2048
)

// Input is a new profile as submitted.
type Input struct {
	UID       string
	Name      string
	Email     string
	Role      string // empty means unprivileged
	Interests []string
	PhotoURL  *string
}

// Patch is a partial profile update. Email and UID are present only so a
// request that tries to change them can be refused.
type Patch struct {
	Name      *string
	Role      *string
	Interests *[]string
	PhotoURL  *string // "" clears the photo

	Email *string
	UID   *string
}

// CreateProfile inserts a profile and writes its claims.
//
// Anyone may create their own unprivileged profile. Creating someone
// else's profile, or any privileged or admin profile, takes an admin
// caller. If the claims cannot be written the document is kept, the
// returned error has side "claims", and the reconciler finishes the job.
func (s *Synchronizer) CreateProfile(ctx context.Context, caller Caller, in Input) (models.Profile, error) {
	const op = "claimsync.create"

	p, err := cleanInput(op, in)
	if err != nil {
		return models.Profile{}, err
	}
	if !caller.System && (caller.UID != p.UID || p.Role != models.RoleUnprivileged) {
		if _, err := s.Authorize(ctx, caller.UID, models.RoleAdmin); err != nil {
			return models.Profile{}, err
		}
	}

	pending, err := s.profiles.HasTombstone(ctx, p.UID)
	if err != nil {
		return models.Profile{}, err
	}
	if pending {
		return models.Profile{}, apperr.InvalidState(op, "profile %s is still being deleted", p.UID)
	}

	p, err = s.profiles.Insert(ctx, p)
	if err != nil {
		return models.Profile{}, err
	}
	s.log.Info("profile created", zap.String("uid", p.UID), zap.String("role", p.Role))

	synced, err := s.syncClaims(ctx, op, p.UID, false)
	if err != nil {
		return p, err
	}
	return synced, nil
}

// UpdateProfile applies patch to uid's document and then rewrites the
// claims. Non-admins may patch only themselves and may not change their
// role. On a claims failure the updated document is returned along with an
// error whose side is "claims".
func (s *Synchronizer) UpdateProfile(ctx context.Context, caller Caller, uid string, patch Patch) (models.Profile, error) {
	const op = "claimsync.update"

	if patch.Email != nil {
		return models.Profile{}, apperr.Validation(op, "email cannot be changed")
	}
	if patch.UID != nil {
		return models.Profile{}, apperr.Validation(op, "uid cannot be changed")
	}

	isAdmin := caller.System
	if !caller.System {
		actor, err := s.Authorize(ctx, caller.UID)
		if err != nil {
			return models.Profile{}, err
		}
		isAdmin = actor.Role == models.RoleAdmin
		if caller.UID != uid && !isAdmin {
			return models.Profile{}, apperr.Forbidden(op, "only admins may edit another user's profile")
		}
	}

	var updated models.Profile
	err := retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		cur, err := s.profiles.Get(ctx, uid)
		if err != nil {
			return retry.Stop(err)
		}
		next, err := applyPatch(op, cur, patch)
		if err != nil {
			return retry.Stop(err)
		}
		if next.Role != cur.Role && !isAdmin {
			return retry.Stop(apperr.Forbidden(op, "only admins may change roles"))
		}

		updated, err = s.profiles.Update(ctx, uid, cur.Version, next)
		if errors.Is(err, profilestore.ErrVersionMismatch) {
			return err
		}
		if err == nil && cur.Role == models.RoleAdmin && next.Role != models.RoleAdmin {
			err = s.keepAnAdmin(ctx, op, uid)
		}
		return retry.Stop(err)
	})
	if err != nil {
		if errors.Is(err, profilestore.ErrVersionMismatch) {
			return models.Profile{}, apperr.Conflict(op, "profile %s kept changing; gave up", uid)
		}
		return models.Profile{}, err
	}

	synced, err := s.syncClaims(ctx, op, uid, false)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Deleted right after the update; report what was written.
			return updated, nil
		}
		return updated, err
	}
	return synced, nil
}

// DeleteProfile removes uid's document and provider identity.
//
// A tombstone is written first and removed only once the identity is gone,
// so a failure part way through leaves a marker the reconciler resumes
// from. Deleting an already-deleted profile succeeds.
func (s *Synchronizer) DeleteProfile(ctx context.Context, caller Caller, uid string) error {
	const op = "claimsync.delete"

	if !caller.System && caller.UID != uid {
		if _, err := s.Authorize(ctx, caller.UID, models.RoleAdmin); err != nil {
			return err
		}
	}

	// An admin is demoted first so the last-admin check covers deletes too.
	demoted, err := s.demoteForDelete(ctx, op, uid)
	if err != nil {
		return err
	}

	if err := s.profiles.AddTombstone(ctx, uid); err != nil {
		if demoted {
			if rerr := s.restoreAdmin(context.WithoutCancel(ctx), op, uid); rerr != nil {
				s.log.Error("could not restore admin role", zap.String("uid", uid), zap.Error(rerr))
			}
		}
		return err
	}
	return s.CompleteDeletion(ctx, uid)
}

// demoteForDelete drops uid to unprivileged if it is an admin, refusing
// when that would leave no admin. A missing profile is not an error.
func (s *Synchronizer) demoteForDelete(ctx context.Context, op, uid string) (bool, error) {
	demoted := false
	err := retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		cur, err := s.profiles.Get(ctx, uid)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return retry.Stop(err)
		}
		if cur.Role != models.RoleAdmin {
			return nil
		}
		next := cur
		next.Role = models.RoleUnprivileged
		_, err = s.profiles.Update(ctx, uid, cur.Version, next)
		if errors.Is(err, profilestore.ErrVersionMismatch) {
			return err
		}
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return retry.Stop(err)
		}
		demoted = true
		return retry.Stop(s.keepAnAdmin(ctx, op, uid))
	})
	if errors.Is(err, profilestore.ErrVersionMismatch) {
		return false, apperr.Conflict(op, "profile %s kept changing; gave up", uid)
	}
	if err != nil {
		return false, err
	}
	return demoted, nil
}

// CompleteDeletion carries a tombstoned deletion through to the end. It is
// safe to call repeatedly.
func (s *Synchronizer) CompleteDeletion(ctx context.Context, uid string) error {
	const op = "claimsync.delete"

	removed, err := s.profiles.Delete(ctx, uid)
	if err != nil {
		return err
	}
	if removed {
		s.log.Info("profile deleted", zap.String("uid", uid))
	}

	attempts := 0
	err = retry.Do(ctx, s.policy, s.log, op, func(attempt int) error {
		attempts = attempt
		return s.provider.DeleteIdentity(ctx, uid)
	})
	if err != nil {
		if rerr := s.profiles.RecordDeletionFailure(context.WithoutCancel(ctx), uid, attempts, err); rerr != nil {
			s.log.Warn("could not record deletion failure", zap.String("uid", uid), zap.Error(rerr))
		}
		s.log.Error("identity delete gave up; reconciler will retry",
			zap.String("uid", uid),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return apperr.Upstream(op, apperr.SideIdentity, err)
	}

	// A create that checked for the tombstone before it was written can
	// land after the first delete. The tombstone is still up, so sweep again.
	late, err := s.profiles.Delete(ctx, uid)
	if err != nil {
		return err
	}
	if late {
		s.log.Warn("removed profile recreated during deletion", zap.String("uid", uid))
	}

	return s.profiles.RemoveTombstone(ctx, uid)
}

// keepAnAdmin runs after uid's admin role was taken away. If no admin is
// left the role is put back and the change is refused. Two admins
// demoting each other at once may both be refused, but the last one to
// commit always sees the other's write, so one admin remains.
func (s *Synchronizer) keepAnAdmin(ctx context.Context, op, uid string) error {
	n, err := s.profiles.CountByRole(ctx, models.RoleAdmin)
	if err == nil && n > 0 {
		return nil
	}
	if rerr := s.restoreAdmin(context.WithoutCancel(ctx), op, uid); rerr != nil {
		s.log.Error("could not restore admin role", zap.String("uid", uid), zap.Error(rerr))
		return rerr
	}
	if err != nil {
		return err
	}
	s.log.Info("refused to remove the last admin", zap.String("uid", uid))
	return apperr.Conflict(op, "cannot remove the last admin")
}

// restoreAdmin gives uid the admin role back, retrying over concurrent
// edits. The claims were never rewritten for the demotion, so the bumped
// version is left for the reconciler.
func (s *Synchronizer) restoreAdmin(ctx context.Context, op, uid string) error {
	return retry.Do(ctx, s.policy, s.log, op+".restore_admin", func(attempt int) error {
		cur, err := s.profiles.Get(ctx, uid)
		if err != nil {
			return retry.Stop(err)
		}
		if cur.Role == models.RoleAdmin {
			return nil
		}
		next := cur
		next.Role = models.RoleAdmin
		_, err = s.profiles.Update(ctx, uid, cur.Version, next)
		if errors.Is(err, profilestore.ErrVersionMismatch) || apperr.IsTransient(err) {
			return err
		}
		return retry.Stop(err)
	})
}

func cleanInput(op string, in Input) (models.Profile, error) {
	p := models.Profile{
		UID:   strings.TrimSpace(in.UID),
		Name:  normalize.Name(in.Name),
		Email: normalize.Email(in.Email),
		Role:  normalize.Role(in.Role),
	}
	if p.Role == "" {
		p.Role = models.RoleUnprivileged
	}
	if !inputval.IsValidUID(p.UID) {
		return p, apperr.Validation(op, "uid is invalid")
	}
	if !inputval.IsValidEmail(p.Email) {
		return p, apperr.Validation(op, "a valid email is required")
	}

	var err error
	p.Interests = in.Interests
	if p.PhotoURL, err = cleanPhoto(op, in.PhotoURL); err != nil {
		return p, err
	}
	return p, validate(op, &p)
}

func applyPatch(op string, cur models.Profile, patch Patch) (models.Profile, error) {
	next := cur
	if patch.Name != nil {
		next.Name = normalize.Name(*patch.Name)
	}
	if patch.Role != nil {
		next.Role = normalize.Role(*patch.Role)
	}
	if patch.Interests != nil {
		next.Interests = *patch.Interests
	}
	if patch.PhotoURL != nil {
		photo, err := cleanPhoto(op, patch.PhotoURL)
		if err != nil {
			return next, err
		}
		next.PhotoURL = photo
	}
	return next, validate(op, &next)
}

// validate checks the mutable fields and normalizes interests in place.
func validate(op string, p *models.Profile) error {
	if p.Name == "" {
		return apperr.Validation(op, "name is required")
	}
	if len(p.Name) > maxNameLen {
		return apperr.Validation(op, "name must be at most %d characters", maxNameLen)
	}
	if !models.IsRole(p.Role) {
		return apperr.Validation(op, "role must be one of unprivileged, privileged, admin")
	}
	p.Interests = normalize.Interests(p.Interests)
	if len(p.Interests) > maxInterests {
		return apperr.Validation(op, "at most %d interests", maxInterests)
	}
	for _, i := range p.Interests {
		if len(i) > maxInterestLen {
			return apperr.Validation(op, "interest %q is too long", i)
		}
	}
	return nil
}

func cleanPhoto(op string, in *string) (*string, error) {
	if in == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*in)
	if v == "" {
		return nil, nil
	}
	if len(v) > maxPhotoURLLen || !inputval.IsValidHTTPURL(v) {
		return nil, apperr.Validation(op, "photo_url must be an http(s) URL")
	}
	return &v, nil
}
