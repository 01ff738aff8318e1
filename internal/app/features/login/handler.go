// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/auditlog"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/normalize"
	"github.com/dalemusser/tutorhub/internal/app/system/ratelimit"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const invalidCredentials = "Invalid credentials"

type Handler struct {
	Users    *userstore.Store
	Tokens   *auth.TokenManager
	Limiter  *ratelimit.AccountLimiter // per-account lockout; per-IP limiting is in Routes
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(
	db *mongo.Database,
	tokens *auth.TokenManager,
	limiter *ratelimit.AccountLimiter,
	audit *auditlog.Logger,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		Tokens:   tokens,
		Limiter:  limiter,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type userBody struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginResponse struct {
	Msg  string   `json:"msg"`
	User userBody `json:"user"`
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Email = normalize.Email(in.Email)
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(in.Email) {
		h.AuditLog.LoginFailedRateLimit(r.Context())
		uierrors.WriteMessage(w, http.StatusTooManyRequests, "Too many login attempts, please try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailedUserNotFound(ctx, in.Email)
		uierrors.WriteMessage(w, http.StatusUnauthorized, invalidCredentials)
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading user", err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		h.AuditLog.LoginFailedWrongPassword(ctx, u.ID, u.Email)
		uierrors.WriteMessage(w, http.StatusUnauthorized, invalidCredentials)
		return
	}

	token, exp, err := h.Tokens.Issue(u.ID.Hex(), u.Role)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to issue token", err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.Reset(in.Email)
	}
	h.Tokens.SetCookie(w, token, exp)
	h.AuditLog.LoginSuccess(ctx, u.ID, u.Email)

	uierrors.WriteJSON(w, http.StatusOK, loginResponse{
		Msg:  "User logged in",
		User: userBody{Role: u.Role, Name: u.FullName, Email: u.Email},
	})
}
