// internal/app/features/materials/routes.go
package materials

import (
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the material routes under whatever base path the caller
// chooses (typically "/api/materials" from bootstrap).
//
// Example from bootstrap:
//
//	h := materials.NewHandler(svc, gateway, m, maxUpload, errLog, logger)
//	r.Mount("/api/materials", materials.Routes(h))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	// Browsing and engagement: any signed-in user.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeView)
		pr.Post("/{id}/download", h.HandleDownload)
		pr.Post("/{id}/like", h.HandleLike)
	})

	// Authoring: tutors and admins. Ownership is checked by the service.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(models.RoleTutor, models.RoleAdmin))

		pr.Get("/my", h.ServeMy)
		pr.Post("/", h.HandleCreate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
