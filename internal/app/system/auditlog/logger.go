// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration. Each field takes one of
// "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off".
type Config struct {
	Auth     string // login, logout, registration
	Admin    string // role changes
	Material string // material and tutoring-session lifecycle
}

// Logger logs audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request metadata                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type requestMeta struct {
	ip        string
	userAgent string
}

type ctxKey struct{}

// CaptureRequest stores client IP and user agent in the request context so
// services without access to *http.Request can still attribute events.
func CaptureRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxKey{}, requestMeta{
			ip:        getClientIP(r),
			userAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func metaFrom(ctx context.Context) requestMeta {
	m, _ := ctx.Value(ctxKey{}).(requestMeta)
	return m
}

// getClientIP extracts the client IP from the request. chi's RealIP
// middleware has already rewritten RemoteAddr when behind a proxy.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so tests and optional wiring can pass nil.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryMaterial, audit.CategorySession:
		setting = l.config.Material
	default:
		setting = "all"
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if event.IP == "" {
		m := metaFrom(ctx)
		event.IP = m.ip
		if event.UserAgent == "" {
			event.UserAgent = m.userAgent
		}
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// LoginFailedUserNotFound logs a failed login for an unknown email.
func (l *Logger) LoginFailedUserNotFound(ctx context.Context, attemptedEmail string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUserNotFound,
		Success:       false,
		FailureReason: "user not found",
		Details:       map[string]string{"attempted_email": attemptedEmail},
	})
}

// LoginFailedWrongPassword logs a failed login due to wrong password.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		UserID:        &userID,
		Success:       false,
		FailureReason: "wrong password",
		Details:       map[string]string{"email": email},
	})
}

// LoginFailedRateLimit logs a login rejected by the rate limiter.
func (l *Logger) LoginFailedRateLimit(ctx context.Context) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		Success:       false,
		FailureReason: "rate limit exceeded",
	})
}

// Logout logs a user logout. userIDStr comes from the token and may be empty.
func (l *Logger) Logout(ctx context.Context, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		Success:   true,
	})
}

// UserRegistered logs a new account.
func (l *Logger) UserRegistered(ctx context.Context, userID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventUserRegistered,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"role": role},
	})
}

// --- Admin Events ---

// RoleChanged logs an admin changing a user's role.
func (l *Logger) RoleChanged(ctx context.Context, actorID, targetUserID primitive.ObjectID, oldRole, newRole string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventRoleChanged,
		UserID:    &targetUserID,
		ActorID:   &actorID,
		Success:   true,
		Details: map[string]string{
			"old_role": oldRole,
			"new_role": newRole,
		},
	})
}

// --- Material Events ---

func (l *Logger) material(ctx context.Context, eventType string, actorID, materialID primitive.ObjectID, title string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMaterial,
		EventType: eventType,
		ActorID:   &actorID,
		Success:   true,
		Details: map[string]string{
			"material_id": materialID.Hex(),
			"title":       title,
		},
	})
}

// MaterialCreated logs a material upload.
func (l *Logger) MaterialCreated(ctx context.Context, actorID, materialID primitive.ObjectID, title string) {
	l.material(ctx, audit.EventMaterialCreated, actorID, materialID, title)
}

// MaterialUpdated logs a material edit.
func (l *Logger) MaterialUpdated(ctx context.Context, actorID, materialID primitive.ObjectID, title string) {
	l.material(ctx, audit.EventMaterialUpdated, actorID, materialID, title)
}

// MaterialDeleted logs a material removal.
func (l *Logger) MaterialDeleted(ctx context.Context, actorID, materialID primitive.ObjectID, title string) {
	l.material(ctx, audit.EventMaterialDeleted, actorID, materialID, title)
}

// --- Tutoring Session Events ---

// SessionChanged logs a tutoring session create/update/delete.
// eventType is one of audit.EventSession*.
func (l *Logger) SessionChanged(ctx context.Context, eventType string, actorID, sessionID primitive.ObjectID, title string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategorySession,
		EventType: eventType,
		ActorID:   &actorID,
		Success:   true,
		Details: map[string]string{
			"session_id": sessionID.Hex(),
			"title":      title,
		},
	})
}
