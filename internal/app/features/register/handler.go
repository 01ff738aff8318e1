// internal/app/features/register/handler.go
package register

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
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    userstore.New(db),
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

// registerInput has no role field; the store assigns it.
type registerInput struct {
	FullName    string `json:"full_name" validate:"required,min=3,max=50" label:"Full name"`
	Email       string `json:"email" validate:"required,email" label:"Email"`
	Password    string `json:"password" validate:"required,min=6" label:"Password"`
	PhoneNumber string `json:"phone_number" validate:"required,phone10" label:"Phone number"`
	Location    string `json:"location" validate:"required" label:"Location"`
}

// HandleRegister handles POST /api/auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.FullName = normalize.Name(in.FullName)
	in.Email = normalize.Email(in.Email)
	in.Location = normalize.Name(in.Location)
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "failed to hash password", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		PhoneNumber:  in.PhoneNumber,
		Location:     in.Location,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		uierrors.WriteMessage(w, http.StatusBadRequest, "Email already exists")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error creating user", err)
		return
	}

	h.AuditLog.UserRegistered(ctx, u.ID, u.Role)
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))

	uierrors.WriteJSON(w, http.StatusCreated, map[string]string{"msg": "User Created Successfully"})
}
