package materials

import (
	"context"
	"mime/multipart"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	materialsvc "github.com/dalemusser/tutorhub/internal/app/services/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
)

// HandleUpdate handles PATCH /api/materials/{id}.
//
// The body is either JSON or multipart; only multipart can carry a
// replacement file. As with create, fields are validated before any upload.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := materialID(r)
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}

	var (
		in patchInput
		fh *multipart.FileHeader
		ct string
	)
	if formutil.IsMultipart(r) {
		if err := formutil.ParseMultipart(w, r, h.MaxUpload); err != nil {
			h.fail(w, r, "update", err)
			return
		}
		defer r.MultipartForm.RemoveAll()
		in = patchInputFromForm(r)
		fh = formFile(r)
	} else {
		if err := formutil.DecodeJSON(w, r, &in); err != nil {
			h.fail(w, r, "update", err)
			return
		}
		in.normalize()
	}
	if err := formutil.Check(in); err != nil {
		h.fail(w, r, "update", err)
		return
	}
	if fh != nil {
		if ct, err = h.checkFile(fh); err != nil {
			h.fail(w, r, "update", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	patch := materialsvc.Patch{
		Title:       in.Title,
		Description: in.Description,
		Subject:     in.Subject,
		Grade:       in.Grade,
		Status:      in.Status,
		Tags:        in.Tags,
		TagsSet:     in.Tags != nil,
	}
	if fh != nil {
		obj, err := h.put(ctx, fh, ct)
		if err != nil {
			h.fail(w, r, "update", err)
			return
		}
		patch.NewFile = &obj
	}

	view, err := h.Svc.Update(ctx, id, patch, requester(r))
	if err != nil {
		h.fail(w, r, "update", err)
		return
	}

	h.Metrics.MaterialOp("update", nil)
	uierrors.WriteJSON(w, http.StatusOK, materialResponse{Msg: "Study material updated", Material: view})
}
