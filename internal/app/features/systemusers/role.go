package systemusers

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/normalize"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type roleInput struct {
	Role string `json:"role" validate:"required,oneof=admin tutor user" label:"Role"`
}

type roleResponse struct {
	Msg  string             `json:"msg"`
	User models.UserSummary `json:"user"`
}

// HandleSetRole handles PATCH /api/auth/users/{id}/role.
//
// The last remaining admin cannot be demoted, so the platform always keeps
// someone able to manage roles.
func (h *Handler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, apierr.BadRequest("Invalid user id"))
		return
	}

	var in roleInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Role = normalize.Role(in.Role)
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	target, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Write(w, r, apierr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading user", err)
		return
	}

	if target.Role == models.RoleAdmin && in.Role != models.RoleAdmin {
		admins, err := h.Users.CountAdmins(ctx)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "database error counting admins", err)
			return
		}
		if admins <= 1 {
			h.ErrLog.Write(w, r, apierr.BadRequest("Cannot remove the last admin"))
			return
		}
	}

	before, err := h.Users.SetRole(ctx, id, in.Role)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.ErrLog.Write(w, r, apierr.NotFound("User not found"))
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error setting role", err)
		return
	}

	h.AuditLog.RoleChanged(ctx, authz.UserID(r), id, before.Role, in.Role)
	h.Log.Info("role changed",
		zap.String("user_id", id.Hex()),
		zap.String("old_role", before.Role),
		zap.String("new_role", in.Role))

	uierrors.WriteJSON(w, http.StatusOK, roleResponse{
		Msg: "Role updated",
		User: models.UserSummary{
			ID:       before.ID,
			FullName: before.FullName,
			Email:    before.Email,
			Role:     in.Role,
		},
	})
}
