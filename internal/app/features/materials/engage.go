package materials

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
)

type downloadResponse struct {
	Msg         string `json:"msg"`
	DownloadURL string `json:"download_url"`
}

// HandleDownload handles POST /api/materials/{id}/download. It records the
// download and returns the URL to fetch the file from.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := materialID(r)
	if err != nil {
		h.fail(w, r, "download", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	url, err := h.Svc.Download(ctx, id)
	if err != nil {
		h.fail(w, r, "download", err)
		return
	}

	h.Metrics.MaterialOp("download", nil)
	uierrors.WriteJSON(w, http.StatusOK, downloadResponse{Msg: "Download recorded", DownloadURL: url})
}

// HandleLike handles POST /api/materials/{id}/like, toggling the caller's like.
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	id, err := materialID(r)
	if err != nil {
		h.fail(w, r, "like", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	res, err := h.Svc.ToggleLike(ctx, id, authz.UserID(r))
	if err != nil {
		h.fail(w, r, "like", err)
		return
	}

	h.Metrics.MaterialOp("like", nil)
	uierrors.WriteJSON(w, http.StatusOK, res)
}
