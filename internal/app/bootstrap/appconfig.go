// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from environment variables (CAMPUSHUB_*), configuration
// files, or command-line flags, loaded in LoadConfig. WAFFLE's CoreConfig
// covers the framework-level settings (ports, TLS, log level, CORS).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Identity provider (Firebase Authentication)
	FirebaseProjectID       string
	FirebaseCredentialsFile string // blank uses application default credentials

	// Location index
	LocationMaxScan int // records a full-collection scan may load

	// Registration retries
	RegistrationMaxAttempts int
	RegistrationBackoff     time.Duration
	RegistrationRateLimit   int // requests per caller per minute; 0 disables

	// Claims synchronizer retries
	ClaimsMaxAttempts int
	ClaimsBackoff     time.Duration

	// Per-call deadlines
	StoreTimeout    time.Duration
	IdentityTimeout time.Duration

	// Reconciler
	ReconcileInterval time.Duration

	// Audit logging: all, db, log or off
	AuditLog string

	// Admin created or promoted at startup; blank skips it
	BootstrapAdminUID   string
	BootstrapAdminEmail string
	BootstrapAdminName  string
}
