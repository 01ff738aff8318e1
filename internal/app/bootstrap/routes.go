// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/tutorhub/internal/app/features/auditlog"
	emailfeature "github.com/dalemusser/tutorhub/internal/app/features/email"
	errorsfeature "github.com/dalemusser/tutorhub/internal/app/features/errors"
	feedbacksfeature "github.com/dalemusser/tutorhub/internal/app/features/feedbacks"
	healthfeature "github.com/dalemusser/tutorhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/tutorhub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/tutorhub/internal/app/features/logout"
	materialsfeature "github.com/dalemusser/tutorhub/internal/app/features/materials"
	messagesfeature "github.com/dalemusser/tutorhub/internal/app/features/messages"
	progressfeature "github.com/dalemusser/tutorhub/internal/app/features/progress"
	registerfeature "github.com/dalemusser/tutorhub/internal/app/features/register"
	systemusersfeature "github.com/dalemusser/tutorhub/internal/app/features/systemusers"
	sessionsfeature "github.com/dalemusser/tutorhub/internal/app/features/tutoringsessions"
	userinfofeature "github.com/dalemusser/tutorhub/internal/app/features/userinfo"
	materialsvc "github.com/dalemusser/tutorhub/internal/app/services/materials"
	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	materialstore "github.com/dalemusser/tutorhub/internal/app/store/materials"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/auditlog"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/app/system/metrics"
	"github.com/dalemusser/tutorhub/internal/app/system/ratelimit"
	"github.com/dalemusser/tutorhub/internal/app/system/reqlog"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Every endpoint speaks JSON under /api. The token middleware runs for all
// requests and attaches the caller, if any; each feature router decides
// which roles it admits.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.TutorHubMongoDatabase
	dev := coreCfg.Env != "prod"

	// Secure cookies are enabled in production mode.
	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTExpiry, coreCfg.Env == "prod", logger)
	if err != nil {
		logger.Error("token manager init failed", zap.Error(err))
		return nil, err
	}
	// Role changes take effect on the next request rather than at token expiry.
	tokens.SetUserFetcher(userstore.NewFetcher(db))

	errLog := errorsfeature.NewErrorLogger(logger, dev)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Admin:    appCfg.AuditLogAdmin,
		Material: appCfg.AuditLogMaterial,
	})
	m := metrics.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(reqlog.Middleware(logger))
	r.Use(m.Middleware)
	r.Use(auditlog.CaptureRequest)
	r.Use(tokens.LoadUser)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.TutorHubMongoClient, appCfg.StorageType, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", m.Handler())

	// Files kept on local disk are served by this process.
	if deps.LocalStorage != nil {
		r.Handle(deps.LocalStorage.URLPath()+"/*", deps.LocalStorage.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Authentication and account management
		api.Route("/auth", func(ar chi.Router) {
			registerHandler := registerfeature.NewHandler(db, auditLog, errLog, logger)
			ar.Mount("/register", registerfeature.Routes(registerHandler))

			limiter := ratelimit.NewAccountLimiter(appCfg.LoginAccountLimit, appCfg.LoginAccountWindow)
			loginHandler := loginfeature.NewHandler(db, tokens, limiter, auditLog, errLog, logger)
			ar.Mount("/login", loginfeature.Routes(loginHandler, appCfg.LoginRateLimit))

			logoutHandler := logoutfeature.NewHandler(tokens, auditLog, logger)
			ar.Mount("/logout", logoutfeature.Routes(logoutHandler))

			userinfofeature.MountRoutes(ar, userinfofeature.NewHandler())

			sysUsersHandler := systemusersfeature.NewHandler(db, errLog, auditLog, logger)
			ar.Mount("/users", systemusersfeature.Routes(sysUsersHandler))
		})

		// Study materials
		materialSvc := materialsvc.New(materialstore.New(db), userstore.New(db), deps.Storage, auditLog, logger)
		materialsHandler := materialsfeature.NewHandler(materialSvc, deps.Storage, m, int64(appCfg.MaxUploadMB)<<20, errLog, logger)
		api.Mount("/materials", materialsfeature.Routes(materialsHandler))

		// Tutoring
		progressHandler := progressfeature.NewHandler(db, errLog, logger)
		api.Mount("/progress", progressfeature.Routes(progressHandler))

		sessionsHandler := sessionsfeature.NewHandler(db, deps.Calendar, auditLog, errLog, logger)
		api.Mount("/tutoring-sessions", sessionsfeature.Routes(sessionsHandler))

		// Messages, feedback and email
		messagesHandler := messagesfeature.NewHandler(db, deps.Storage, errLog, logger)
		api.Mount("/messages", messagesfeature.Routes(messagesHandler))

		feedbacksHandler := feedbacksfeature.NewHandler(db, deps.FeedbackNotify, errLog, logger)
		api.Mount("/feedbacks", feedbacksfeature.Routes(feedbacksHandler))

		emailHandler := emailfeature.NewHandler(deps.Mailer, appCfg.AdminNotifyEmail, appCfg.SiteName, errLog, logger)
		api.Mount("/email", emailfeature.Routes(emailHandler))

		// Administration
		auditHandler := auditlogfeature.NewHandler(db, errLog, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler))
	})

	logger.Info("routes mounted",
		zap.String("storage", appCfg.StorageType),
		zap.Bool("mail", deps.Mailer.Enabled()),
		zap.Bool("calendar", deps.Calendar.Enabled()),
		zap.Duration("token_expiry", appCfg.JWTExpiry.Round(time.Minute)))
	return r, nil
}
