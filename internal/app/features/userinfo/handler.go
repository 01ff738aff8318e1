// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
)

// Handler serves the identity of the signed-in user.
type Handler struct{}

// NewHandler creates a new userinfo handler.
func NewHandler() *Handler {
	return &Handler{}
}

type meResponse struct {
	User userBody `json:"user"`
}

type userBody struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ServeMe returns the current user.
//
// Response format:
//
//	{ "user": { "id": "...", "name": "...", "email": "...", "role": "..." } }
//
// Values come from the token middleware, which reloads the user on each
// request, so a role change shows up here immediately.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.WriteMessage(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, meResponse{User: userBody{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}})
}
