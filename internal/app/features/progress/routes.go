// internal/app/features/progress/routes.go
package progress

import (
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.With(auth.RequireRole(models.RoleTutor, models.RoleAdmin)).Post("/", h.HandleUpsert)
	r.Get("/me", h.ServeMine)
	r.Get("/student/{studentId}", h.ServeByStudent)
	r.Get("/tutor/{tutorId}", h.ServeByTutor)
	return r
}
