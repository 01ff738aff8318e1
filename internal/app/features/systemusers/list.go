package systemusers

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/paging"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

type listResponse struct {
	Users       []models.UserSummary `json:"users"`
	TotalCount  int64                `json:"total_count"`
	TotalPages  int64                `json:"total_pages"`
	CurrentPage int                  `json:"current_page"`
	Limit       int                  `json:"limit"`
}

// ServeList handles GET /api/auth/users.
//
// Query: role (admin|tutor|user), search (name or email prefix), page, limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p := paging.Parse(r)
	users, total, err := h.Users.List(ctx, userstore.ListFilter{
		Role:   query.Get(r, "role"),
		Search: query.Get(r, "search"),
	}, p)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing users", err)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Users:       users,
		TotalCount:  total,
		TotalPages:  paging.TotalPages(total, p.Limit),
		CurrentPage: p.Page,
		Limit:       p.Limit,
	})
}
