// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/campushub/internal/app/system/auditlog"
	"github.com/dalemusser/campushub/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Upper bounds accepted for the retry settings.
const (
	maxAttemptsCap = 20
	maxLocationCap = 1_000_000
)

// appConfigKeys defines the configuration keys for CampusHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, location_max_scan, etc.
//   - Environment variables: CAMPUSHUB_MONGO_URI, CAMPUSHUB_AUDIT_LOG, etc.
//   - Command-line flags: --mongo_uri, --audit_log, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "campushub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Identity provider
	{Name: "firebase_project_id", Default: "", Desc: "Firebase project ID (blank: taken from credentials)"},
	{Name: "firebase_credentials_file", Default: "", Desc: "Service account JSON file (blank: application default credentials)"},

	// Location index
	{Name: "location_max_scan", Default: 5000, Desc: "Most location records a map query may scan"},

	// Registration
	{Name: "registration_max_attempts", Default: 5, Desc: "Attempts per registration before giving up on concurrent changes"},
	{Name: "registration_backoff", Default: "25ms", Desc: "Initial backoff between registration attempts"},
	{Name: "registration_rate_limit", Default: 30, Desc: "Registration requests per user per minute (0 disables)"},

	// Claims synchronizer
	{Name: "claims_max_attempts", Default: 5, Desc: "Attempts per claims write before leaving it to the reconciler"},
	{Name: "claims_backoff", Default: "100ms", Desc: "Initial backoff between claims write attempts"},

	// Timeouts
	{Name: "store_timeout", Default: "5s", Desc: "Deadline for a single MongoDB call"},
	{Name: "identity_timeout", Default: "5s", Desc: "Deadline for a single identity provider call"},

	// Reconciler
	{Name: "reconcile_interval", Default: "1m", Desc: "How often pending claims and deletions are retried"},

	// Audit logging
	{Name: "audit_log", Default: "all", Desc: "Audit logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Bootstrap admin
	{Name: "bootstrap_admin_uid", Default: "", Desc: "Identity provider uid to create or promote as admin on startup"},
	{Name: "bootstrap_admin_email", Default: "", Desc: "Email for the bootstrap admin if it must be created"},
	{Name: "bootstrap_admin_name", Default: "Administrator", Desc: "Display name for the bootstrap admin if it must be created"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// environment variables (WAFFLE_* for core, CAMPUSHUB_* for app) and
// command-line flags with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAMPUSHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		FirebaseProjectID:       appValues.String("firebase_project_id"),
		FirebaseCredentialsFile: appValues.String("firebase_credentials_file"),

		LocationMaxScan: appValues.Int("location_max_scan"),

		RegistrationMaxAttempts: appValues.Int("registration_max_attempts"),
		RegistrationBackoff:     appValues.Duration("registration_backoff", 25*time.Millisecond),
		RegistrationRateLimit:   appValues.Int("registration_rate_limit"),

		ClaimsMaxAttempts: appValues.Int("claims_max_attempts"),
		ClaimsBackoff:     appValues.Duration("claims_backoff", 100*time.Millisecond),

		StoreTimeout:    appValues.Duration("store_timeout", 5*time.Second),
		IdentityTimeout: appValues.Duration("identity_timeout", 5*time.Second),

		ReconcileInterval: appValues.Duration("reconcile_interval", time.Minute),

		AuditLog: appValues.String("audit_log"),

		BootstrapAdminUID:   appValues.String("bootstrap_admin_uid"),
		BootstrapAdminEmail: appValues.String("bootstrap_admin_email"),
		BootstrapAdminName:  appValues.String("bootstrap_admin_name"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here so a typo fails before any connection
// attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database is required")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)", appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}

	if appCfg.LocationMaxScan < 1 || appCfg.LocationMaxScan > maxLocationCap {
		return fmt.Errorf("location_max_scan must be between 1 and %d", maxLocationCap)
	}
	if appCfg.RegistrationMaxAttempts < 1 || appCfg.RegistrationMaxAttempts > maxAttemptsCap {
		return fmt.Errorf("registration_max_attempts must be between 1 and %d", maxAttemptsCap)
	}
	if appCfg.ClaimsMaxAttempts < 1 || appCfg.ClaimsMaxAttempts > maxAttemptsCap {
		return fmt.Errorf("claims_max_attempts must be between 1 and %d", maxAttemptsCap)
	}
	if appCfg.RegistrationRateLimit < 0 {
		return fmt.Errorf("registration_rate_limit must not be negative")
	}

	for name, d := range map[string]time.Duration{
		"registration_backoff": appCfg.RegistrationBackoff,
		"claims_backoff":       appCfg.ClaimsBackoff,
		"store_timeout":        appCfg.StoreTimeout,
		"identity_timeout":     appCfg.IdentityTimeout,
		"reconcile_interval":   appCfg.ReconcileInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if !auditlog.IsMode(appCfg.AuditLog) {
		return fmt.Errorf("audit_log must be one of all, db, log, off (got %q)", appCfg.AuditLog)
	}

	if appCfg.BootstrapAdminUID != "" {
		if !inputval.IsValidUID(appCfg.BootstrapAdminUID) {
			return fmt.Errorf("bootstrap_admin_uid is not a valid uid")
		}
		if appCfg.BootstrapAdminEmail != "" && !inputval.IsValidEmail(appCfg.BootstrapAdminEmail) {
			return fmt.Errorf("bootstrap_admin_email is not a valid email address")
		}
	}

	return nil
}
