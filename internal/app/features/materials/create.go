package materials

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	materialsvc "github.com/dalemusser/tutorhub/internal/app/services/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
)

type materialResponse struct {
	Msg      string           `json:"msg,omitempty"`
	Material materialsvc.View `json:"material"`
}

// HandleCreate handles POST /api/materials.
//
// Order matters: the form is parsed and every field validated before the
// file reaches storage, so a rejected request never uploads anything. Once
// uploaded, the service owns the object and removes it if the create fails.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if !formutil.IsMultipart(r) {
		h.fail(w, r, "create", apierr.BadRequest("Request must be multipart/form-data with a file"))
		return
	}
	if err := formutil.ParseMultipart(w, r, h.MaxUpload); err != nil {
		h.fail(w, r, "create", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := createInputFromForm(r)
	if err := formutil.Check(in); err != nil {
		h.fail(w, r, "create", err)
		return
	}
	fh := formFile(r)
	if fh == nil {
		h.fail(w, r, "create", apierr.BadRequest("File is required"))
		return
	}
	ct, err := h.checkFile(fh)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	obj, err := h.put(ctx, fh, ct)
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}

	view, err := h.Svc.Create(ctx, materialsvc.CreateInput{
		Title:       in.Title,
		Description: in.Description,
		Subject:     in.Subject,
		Grade:       in.Grade,
		Tags:        in.Tags,
		Status:      in.Status,
		File:        obj,
	}, authz.UserID(r))
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}

	h.Metrics.MaterialOp("create", nil)
	uierrors.WriteJSON(w, http.StatusCreated, materialResponse{Msg: "Study material uploaded", Material: view})
}
