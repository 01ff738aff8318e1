// internal/app/features/feedbacks/routes.go
package feedbacks

import (
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.With(auth.RequireRole(models.RoleUser)).Post("/", h.HandleCreate)
	r.Get("/tutor/{tutorId}", h.ServeByTutor)
	return r
}
