// internal/app/features/materials/handler.go
package materials

import (
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	materialsvc "github.com/dalemusser/tutorhub/internal/app/services/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/limits"
	"github.com/dalemusser/tutorhub/internal/app/system/metrics"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler owns the study-material endpoints. Lifecycle rules (ownership,
// duplicate titles, storage cleanup) live in the service; the handler
// parses requests, uploads files, and shapes responses.
//
// It is constructed once at startup in bootstrap.
type Handler struct {
	Svc       *materialsvc.Service
	Storage   storage.Gateway
	Metrics   *metrics.Metrics
	MaxUpload int64
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

// NewHandler constructs a Handler. maxUpload <= 0 selects
// limits.DefaultMaxUploadSize; m may be nil.
func NewHandler(
	svc *materialsvc.Service,
	gw storage.Gateway,
	m *metrics.Metrics,
	maxUpload int64,
	errLog *uierrors.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	if maxUpload <= 0 {
		maxUpload = limits.DefaultMaxUploadSize
	}
	return &Handler{
		Svc:       svc,
		Storage:   gw,
		Metrics:   m,
		MaxUpload: maxUpload,
		ErrLog:    errLog,
		Log:       logger,
	}
}

func materialID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apierr.BadRequest("Invalid material id")
	}
	return id, nil
}

func requester(r *http.Request) materialsvc.Requester {
	role, _, id, _ := authz.UserCtx(r)
	return materialsvc.Requester{ID: id, Role: role}
}

// fail records a failed material operation and writes the error.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.Metrics.MaterialOp(op, err)
	h.ErrLog.Write(w, r, err)
}
