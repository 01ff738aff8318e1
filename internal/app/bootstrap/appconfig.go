// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (TUTORHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// keeps the framework-level settings: ports, TLS, log level, CORS.
//
// The struct is passed to every lifecycle hook, so anything needed during
// startup, request handling, or shutdown lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI      string
	MongoDatabase string

	// Token auth
	JWTSecret      string        // HS256 signing key, at least 16 characters (32 in prod)
	JWTExpiry      time.Duration // lifetime of the token cookie
	LoginRateLimit int           // login attempts per IP per minute; 0 disables

	// Per-account lockout after repeated failed logins
	LoginAccountLimit  int
	LoginAccountWindow time.Duration

	// File storage configuration
	StorageType      string // "local" or "minio"
	StorageLocalPath string // directory for local storage
	StorageLocalURL  string // absolute base URL local files are served under
	MaxUploadMB      int

	// MinIO / S3-compatible configuration (only used if StorageType is "minio")
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIOPublicURL string

	// Email/SMTP configuration
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string
	SiteName     string

	// Feedback notifications
	AdminNotifyEmail     string
	FeedbackEmailEnabled bool
	FeedbackEmailToTutor bool
	FeedbackEmailToAdmin bool

	// Google Calendar sync for tutoring sessions
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleRefreshToken string
	CalendarID         string
	CalendarTimeZone   string

	// Audit logging: "all", "db", "log", or "off"
	AuditLogAuth     string
	AuditLogAdmin    string
	AuditLogMaterial string
}
