// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/campushub/internal/app/store/audit"
	eventstore "github.com/dalemusser/campushub/internal/app/store/events"
	locationstore "github.com/dalemusser/campushub/internal/app/store/locations"
	profilestore "github.com/dalemusser/campushub/internal/app/store/profiles"
	"github.com/dalemusser/campushub/internal/app/system/apperr"
	"github.com/dalemusser/campushub/internal/app/system/auditlog"
	"github.com/dalemusser/campushub/internal/app/system/claimsync"
	"github.com/dalemusser/campushub/internal/app/system/identity"
	"github.com/dalemusser/campushub/internal/app/system/metrics"
	"github.com/dalemusser/campushub/internal/app/system/ratelimit"
	"github.com/dalemusser/campushub/internal/app/system/retry"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/app/system/workers"
	"github.com/dalemusser/campushub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Services is everything Startup builds for the handlers and workers.
type Services struct {
	Metrics    *metrics.Metrics
	Provider   identity.Provider
	Locations  *locationstore.Store
	Events     *eventstore.Store
	Profiles   *profilestore.Store
	Sync       *claimsync.Synchronizer
	Audit      *auditlog.Logger
	AuditTrail *audit.Store
	Limiter    *ratelimit.Limiter
	Reconciler *workers.Reconciler
}

// Startup runs once after the schema is in place and before the handler is
// built: it applies the timeouts, connects the identity provider, builds
// the services, makes sure the bootstrap admin exists and starts the
// reconciler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Store:    appCfg.StoreTimeout,
		Identity: appCfg.IdentityTimeout,
	})

	fb, err := identity.NewFirebase(ctx, identity.FirebaseConfig{
		ProjectID:       appCfg.FirebaseProjectID,
		CredentialsFile: appCfg.FirebaseCredentialsFile,
	}, logger)
	if err != nil {
		logger.Error("identity provider init failed", zap.Error(err))
		return err
	}

	*deps.Services = buildServices(appCfg, deps, fb, logger)
	svc := deps.Services

	if err := ensureBootstrapAdmin(ctx, svc.Sync, appCfg, logger); err != nil {
		return err
	}

	svc.Reconciler.Start()
	return nil
}

// buildServices wires the stores and services to each other.
func buildServices(appCfg AppConfig, deps DBDeps, provider identity.Provider, logger *zap.Logger) Services {
	db := deps.MongoDatabase
	m := metrics.New()

	locations := locationstore.New(db, appCfg.LocationMaxScan)
	locations.SetMetrics(m)

	events := eventstore.New(db, retry.Policy{
		MaxAttempts: appCfg.RegistrationMaxAttempts,
		Initial:     appCfg.RegistrationBackoff,
		Max:         appCfg.RegistrationBackoff * 8,
	}, logger)
	events.SetMetrics(m)

	profiles := profilestore.New(db)
	cs := claimsync.New(profiles, provider, retry.Policy{
		MaxAttempts: appCfg.ClaimsMaxAttempts,
		Initial:     appCfg.ClaimsBackoff,
		Max:         appCfg.ClaimsBackoff * 16,
	}, logger)
	cs.SetMetrics(m)

	trail := audit.New(db)
	auditLog := auditlog.New(trail, logger, auditlog.Config{
		Catalog:  appCfg.AuditLog,
		Accounts: appCfg.AuditLog,
	})

	return Services{
		Metrics:    m,
		Provider:   provider,
		Locations:  locations,
		Events:     events,
		Profiles:   profiles,
		Sync:       cs,
		Audit:      auditLog,
		AuditTrail: trail,
		Limiter:    ratelimit.New(appCfg.RegistrationRateLimit, time.Minute),
		Reconciler: workers.NewReconciler(cs, profiles, m, logger, appCfg.ReconcileInterval),
	}
}

// ensureBootstrapAdmin creates the configured admin profile, or promotes
// it if it exists with another role. A claims write that fails is logged
// and left to the reconciler; a document write that fails aborts startup.
func ensureBootstrapAdmin(ctx context.Context, cs *claimsync.Synchronizer, appCfg AppConfig, logger *zap.Logger) error {
	uid := appCfg.BootstrapAdminUID
	if uid == "" {
		return nil
	}

	cur, err := cs.GetProfile(ctx, claimsync.System, uid)
	switch {
	case err == nil && cur.Role == models.RoleAdmin:
		logger.Debug("bootstrap admin present", zap.String("uid", uid))
		return nil

	case err == nil:
		role := models.RoleAdmin
		_, err = cs.UpdateProfile(ctx, claimsync.System, uid, claimsync.Patch{Role: &role})
		if err == nil || apperr.SideOf(err) == apperr.SideClaims {
			logger.Info("bootstrap admin promoted", zap.String("uid", uid), zap.String("from", cur.Role))
		}

	case errors.Is(err, apperr.ErrNotFound):
		if appCfg.BootstrapAdminEmail == "" {
			return fmt.Errorf("bootstrap admin %s has no profile and bootstrap_admin_email is not set", uid)
		}
		_, err = cs.CreateProfile(ctx, claimsync.System, claimsync.Input{
			UID:   uid,
			Name:  appCfg.BootstrapAdminName,
			Email: appCfg.BootstrapAdminEmail,
			Role:  models.RoleAdmin,
		})
		if err == nil || apperr.SideOf(err) == apperr.SideClaims {
			logger.Info("bootstrap admin created", zap.String("uid", uid))
		}

	default:
		return fmt.Errorf("load bootstrap admin: %w", err)
	}

	if err != nil {
		if apperr.SideOf(err) == apperr.SideClaims {
			logger.Warn("bootstrap admin claims pending", zap.String("uid", uid), zap.Error(err))
			return nil
		}
		return fmt.Errorf("bootstrap admin %s: %w", uid, err)
	}
	return nil
}
