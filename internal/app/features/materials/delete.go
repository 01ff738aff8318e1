package materials

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
)

// HandleDelete handles DELETE /api/materials/{id}. The stored file goes
// first (best effort), then the record.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := materialID(r)
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	deleted, err := h.Svc.Delete(ctx, id, requester(r))
	if err != nil {
		h.fail(w, r, "delete", err)
		return
	}

	h.Metrics.MaterialOp("delete", nil)
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"msg":      "Study material deleted",
		"material": deleted,
	})
}
