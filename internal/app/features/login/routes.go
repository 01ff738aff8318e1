// internal/app/features/login/routes.go
package login

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Routes mounts the login endpoint. perMinute caps attempts per client IP;
// zero disables the IP limit.
func Routes(h *Handler, perMinute int) chi.Router {
	r := chi.NewRouter()
	if perMinute > 0 {
		r.Use(httprate.LimitByIP(perMinute, time.Minute))
	}
	r.Post("/", h.HandleLogin)
	return r
}
