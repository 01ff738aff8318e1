package materials

import (
	"context"
	"net/http"
	"strconv"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	materialsvc "github.com/dalemusser/tutorhub/internal/app/services/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func listParams(r *http.Request) materialsvc.ListParams {
	atoi := func(key string) int {
		n, _ := strconv.Atoi(query.Get(r, key))
		return n
	}
	return materialsvc.ListParams{
		Subject:    query.Get(r, "subject"),
		Grade:      query.Get(r, "grade"),
		Keyword:    query.Get(r, "keyword"),
		Status:     query.Get(r, "status"),
		Sort:       query.Get(r, "sort"),
		UploadedBy: uploaderParam(r),
		Page:       atoi("page"),
		Limit:      atoi("limit"),
	}
}

// uploaderParam reads uploaded_by (or uploadedBy). Values that are not
// ObjectIDs are ignored, like unknown status values.
func uploaderParam(r *http.Request) *primitive.ObjectID {
	raw := query.Get(r, "uploaded_by")
	if raw == "" {
		raw = query.Get(r, "uploadedBy")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil
	}
	return &id
}

// ServeList handles GET /api/materials.
//
// Query: subject, grade, keyword, status, sort, uploaded_by, page, limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, listParams(r))
}

// ServeMy handles GET /api/materials/my: the caller's own uploads.
func (h *Handler) ServeMy(w http.ResponseWriter, r *http.Request) {
	p := listParams(r)
	uid := authz.UserID(r)
	p.UploadedBy = &uid
	h.serveList(w, r, p)
}

func (h *Handler) serveList(w http.ResponseWriter, r *http.Request, p materialsvc.ListParams) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Svc.List(ctx, p)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, res)
}

// ServeView handles GET /api/materials/{id}. Each fetch counts as a view.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := materialID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	view, err := h.Svc.Get(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, materialResponse{Material: view})
}
