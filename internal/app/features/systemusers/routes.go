// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts user administration under the path where this router is
// mounted (typically "/api/auth/users" from bootstrap).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Patch("/{id}/role", h.HandleSetRole)
	})

	return r
}
