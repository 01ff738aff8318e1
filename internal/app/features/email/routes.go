// internal/app/features/email/routes.go
package email

import (
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/feedback-notify", h.HandleFeedbackNotify)
	r.With(auth.RequireRole(models.RoleAdmin)).Get("/test-email", h.HandleTestEmail)
	return r
}
