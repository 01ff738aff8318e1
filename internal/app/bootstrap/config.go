// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/app/system/calendar"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TutorHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: TUTORHUB_MONGO_URI, TUTORHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "tutorhub", Desc: "MongoDB database name"},

	// Token auth
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "JWT signing secret (must be strong in production)"},
	{Name: "jwt_expiry", Default: "24h", Desc: "Login token lifetime (e.g., 24h, 30m)"},
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts per IP per minute (0 disables)"},
	{Name: "login_account_limit", Default: 5, Desc: "Failed logins per account before a temporary lockout"},
	{Name: "login_account_window", Default: "15m", Desc: "Window for the per-account login limit"},

	// File storage configuration
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 'minio'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "http://localhost:8080/files", Desc: "Absolute base URL for serving local files"},
	{Name: "max_upload_mb", Default: 20, Desc: "Maximum material file size in MiB"},

	// MinIO configuration
	{Name: "minio_endpoint", Default: "", Desc: "MinIO/S3 endpoint (host:port)"},
	{Name: "minio_access_key", Default: "", Desc: "MinIO access key"},
	{Name: "minio_secret_key", Default: "", Desc: "MinIO secret key"},
	{Name: "minio_bucket", Default: "tutorhub", Desc: "MinIO bucket name"},
	{Name: "minio_use_ssl", Default: false, Desc: "Use TLS to reach MinIO"},
	{Name: "minio_public_url", Default: "", Desc: "Public base URL for objects (blank derives from endpoint)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank disables mail)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@tutorhub.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "TutorHub", Desc: "From display name"},
	{Name: "site_name", Default: "TutorHub", Desc: "Site name used in email"},

	// Feedback notifications
	{Name: "admin_notify_email", Default: "", Desc: "Address that receives feedback notifications"},
	{Name: "feedback_email_enabled", Default: true, Desc: "Send an email when feedback is submitted"},
	{Name: "feedback_email_to_tutor", Default: true, Desc: "Notify the rated tutor"},
	{Name: "feedback_email_to_admin", Default: true, Desc: "Notify admin_notify_email"},

	// Google Calendar
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_redirect_uri", Default: "", Desc: "Google OAuth2 redirect URI"},
	{Name: "google_refresh_token", Default: "", Desc: "Refresh token for the calendar account"},
	{Name: "google_calendar_id", Default: "primary", Desc: "Calendar that tutoring sessions are written to"},
	{Name: "calendar_time_zone", Default: calendar.DefaultTimeZone, Desc: "IANA time zone for session times"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_material", Default: "db", Desc: "Material and session event logging: 'all', 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, TUTORHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TUTORHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),

		JWTSecret:          appValues.String("jwt_secret"),
		JWTExpiry:          appValues.Duration("jwt_expiry", 24*time.Hour),
		LoginRateLimit:     appValues.Int("login_rate_limit"),
		LoginAccountLimit:  appValues.Int("login_account_limit"),
		LoginAccountWindow: appValues.Duration("login_account_window", 15*time.Minute),

		StorageType:      strings.ToLower(appValues.String("storage_type")),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  strings.TrimRight(appValues.String("storage_local_url"), "/"),
		MaxUploadMB:      appValues.Int("max_upload_mb"),

		MinIOEndpoint:  appValues.String("minio_endpoint"),
		MinIOAccessKey: appValues.String("minio_access_key"),
		MinIOSecretKey: appValues.String("minio_secret_key"),
		MinIOBucket:    appValues.String("minio_bucket"),
		MinIOUseSSL:    appValues.Bool("minio_use_ssl"),
		MinIOPublicURL: appValues.String("minio_public_url"),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),
		SiteName:     appValues.String("site_name"),

		AdminNotifyEmail:     appValues.String("admin_notify_email"),
		FeedbackEmailEnabled: appValues.Bool("feedback_email_enabled"),
		FeedbackEmailToTutor: appValues.Bool("feedback_email_to_tutor"),
		FeedbackEmailToAdmin: appValues.Bool("feedback_email_to_admin"),

		GoogleClientID:     appValues.String("google_client_id"),
		GoogleClientSecret: appValues.String("google_client_secret"),
		GoogleRedirectURI:  appValues.String("google_redirect_uri"),
		GoogleRefreshToken: appValues.String("google_refresh_token"),
		CalendarID:         appValues.String("google_calendar_id"),
		CalendarTimeZone:   appValues.String("calendar_time_zone"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogMaterial: appValues.String("audit_log_material"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI, the signing secret and the storage settings are checked
// here so a misconfiguration fails before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(coreCfg.Env, appCfg)
}

func validateAppConfig(env string, appCfg AppConfig) error {
	if len(appCfg.JWTSecret) < auth.MinSecretLen {
		return fmt.Errorf("jwt_secret must be at least %d characters", auth.MinSecretLen)
	}
	if env == "prod" {
		if len(appCfg.JWTSecret) < 32 || strings.HasPrefix(appCfg.JWTSecret, "dev-only") {
			return fmt.Errorf("jwt_secret must be a strong secret of at least 32 characters in prod")
		}
	}
	if appCfg.JWTExpiry <= 0 {
		return fmt.Errorf("jwt_expiry must be positive")
	}
	if appCfg.MaxUploadMB < 0 {
		return fmt.Errorf("max_upload_mb must not be negative")
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_local_path is required for local storage")
		}
		u, err := url.Parse(appCfg.StorageLocalURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("storage_local_url must be an absolute http(s) URL, got %q", appCfg.StorageLocalURL)
		}
	case "minio":
		if appCfg.MinIOEndpoint == "" || appCfg.MinIOBucket == "" {
			return fmt.Errorf("minio_endpoint and minio_bucket are required for minio storage")
		}
		if appCfg.MinIOAccessKey == "" || appCfg.MinIOSecretKey == "" {
			return fmt.Errorf("minio_access_key and minio_secret_key are required for minio storage")
		}
	default:
		return fmt.Errorf("storage_type must be 'local' or 'minio', got %q", appCfg.StorageType)
	}
	return nil
}
