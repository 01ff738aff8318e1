// internal/app/features/progress/handler.go
package progress

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	progressstore "github.com/dalemusser/tutorhub/internal/app/store/progress"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Progress *progressstore.Store
	Users    *userstore.Store
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Progress: progressstore.New(db),
		Users:    userstore.New(db),
		ErrLog:   errLog,
		Log:      logger,
	}
}

type upsertInput struct {
	Student           string `json:"student" validate:"required,objectid" label:"Student"`
	Tutor             string `json:"tutor" validate:"omitempty,objectid" label:"Tutor"`
	Session           string `json:"session" validate:"omitempty,objectid" label:"Session"`
	Topic             string `json:"topic" validate:"required,max=200" label:"Topic"`
	CompletionPercent *int   `json:"completion_percent" validate:"required,min=0,max=100" label:"Completion percent"`
	Notes             string `json:"notes" validate:"max=2000" label:"Notes"`
}

type progressResponse struct {
	Progress models.Progress `json:"progress"`
}

type listResponse struct {
	Progress []models.Progress `json:"progress"`
}

// HandleUpsert handles POST /api/progress. A tutor always records progress
// as themselves; an admin may name the tutor.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var in upsertInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	role, _, caller, _ := authz.UserCtx(r)
	student, _ := primitive.ObjectIDFromHex(in.Student)
	tutor := caller
	if role == models.RoleAdmin && in.Tutor != "" {
		tutor, _ = primitive.ObjectIDFromHex(in.Tutor)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Users.GetByID(ctx, student); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.ErrLog.Write(w, r, apierr.NotFound("Student not found"))
			return
		}
		h.ErrLog.LogServerError(w, r, "database error loading student", err)
		return
	}

	p := models.Progress{
		Student:           student,
		Tutor:             tutor,
		Topic:             in.Topic,
		CompletionPercent: *in.CompletionPercent,
		Notes:             in.Notes,
		UpdatedBy:         caller,
	}
	if in.Session != "" {
		sid, _ := primitive.ObjectIDFromHex(in.Session)
		p.Session = &sid
	}

	saved, err := h.Progress.Upsert(ctx, p)
	if err != nil {
		h.ErrLog.Write(w, r, storeErr(err))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, progressResponse{Progress: saved})
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, progressstore.ErrTopicRequired),
		errors.Is(err, progressstore.ErrTopicTooLong),
		errors.Is(err, progressstore.ErrNotesTooLong),
		errors.Is(err, progressstore.ErrPercentInvalid):
		return &apierr.Error{Kind: apierr.KindBadRequest, Message: "Invalid progress: " + err.Error(), Err: err}
	}
	return err
}

// ServeMine handles GET /api/progress/me.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	h.serveList(w, r, h.Progress.ListByStudent, authz.UserID(r))
}

// ServeByStudent handles GET /api/progress/student/{studentId}. Students
// see only their own rows; tutors and admins see anyone's.
func (h *Handler) ServeByStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "studentId")
	if !ok {
		return
	}
	if id != authz.UserID(r) && !authz.IsStaff(r) {
		h.ErrLog.Write(w, r, apierr.Forbidden("You may only view your own progress"))
		return
	}
	h.serveList(w, r, h.Progress.ListByStudent, id)
}

// ServeByTutor handles GET /api/progress/tutor/{tutorId}: the tutor
// themselves or an admin.
func (h *Handler) ServeByTutor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "tutorId")
	if !ok {
		return
	}
	if id != authz.UserID(r) && !authz.IsAdmin(r) {
		h.ErrLog.Write(w, r, apierr.Forbidden("You may only view progress you recorded"))
		return
	}
	h.serveList(w, r, h.Progress.ListByTutor, id)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, key string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, key))
	if err != nil {
		h.ErrLog.Write(w, r, apierr.BadRequest("Invalid user id"))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *Handler) serveList(
	w http.ResponseWriter,
	r *http.Request,
	list func(context.Context, primitive.ObjectID) ([]models.Progress, error),
	id primitive.ObjectID,
) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := list(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing progress", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Progress: rows})
}
