// internal/app/features/messages/routes.go
package messages

import (
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.With(auth.RequireRole(models.RoleUser)).Post("/", h.HandleCreate)
	return r
}
