// internal/app/features/feedbacks/handler.go
package feedbacks

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	feedbackstore "github.com/dalemusser/tutorhub/internal/app/store/feedback"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tutorhub/internal/app/system/mailer"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Notifier queues a feedback email. *workers.FeedbackNotify satisfies it.
type Notifier interface {
	Enqueue(data mailer.FeedbackEmailData, tutorEmail string) bool
}

type Handler struct {
	Feedback *feedbackstore.Store
	Users    *userstore.Store
	Notify   Notifier
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler builds the handler. notify may be nil, in which case no
// email is sent.
func NewHandler(db *mongo.Database, notify Notifier, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Feedback: feedbackstore.New(db),
		Users:    userstore.New(db),
		Notify:   notify,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type feedbackInput struct {
	Tutor   string `json:"tutor" validate:"required,objectid" label:"Tutor"`
	Session string `json:"session" validate:"omitempty,objectid" label:"Session"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5" label:"Rating"`
	Message string `json:"message" validate:"required,max=2000" label:"Message"`
	Course  string `json:"course" validate:"max=100" label:"Course"`
}

// HandleCreate handles POST /api/feedbacks. The feedback is stored first;
// the notification is queued afterwards and its outcome never affects the
// response.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in feedbackInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Message = htmlsanitize.PlainText(in.Message)
	in.Course = strings.TrimSpace(in.Course)
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	tutorID, _ := primitive.ObjectIDFromHex(in.Tutor)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	tutor, err := h.Users.GetByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			h.ErrLog.Write(w, r, apierr.NotFound("Tutor not found"))
			return
		}
		h.ErrLog.LogServerError(w, r, "database error loading tutor", err)
		return
	}
	if tutor.Role != models.RoleTutor && tutor.Role != models.RoleAdmin {
		h.ErrLog.Write(w, r, apierr.BadRequest("Feedback can only be given to a tutor"))
		return
	}

	fb := models.Feedback{
		Student: authz.UserID(r),
		Tutor:   tutorID,
		Rating:  in.Rating,
		Message: in.Message,
		Course:  in.Course,
	}
	if in.Session != "" {
		sid, _ := primitive.ObjectIDFromHex(in.Session)
		fb.Session = &sid
	}

	saved, err := h.Feedback.Create(ctx, fb)
	if err != nil {
		if errors.Is(err, feedbackstore.ErrRatingInvalid) || errors.Is(err, feedbackstore.ErrMessageInvalid) {
			h.ErrLog.Write(w, r, apierr.BadRequest(err.Error()))
			return
		}
		h.ErrLog.LogServerError(w, r, "database error creating feedback", err)
		return
	}

	if h.Notify != nil {
		student, _ := auth.CurrentUser(r)
		h.Notify.Enqueue(mailer.FeedbackEmailData{
			StudentName:  student.Name,
			StudentEmail: student.Email,
			TutorName:    tutor.FullName,
			Course:       saved.Course,
			Rating:       saved.Rating,
			Message:      saved.Message,
		}, tutor.Email)
	}

	uierrors.WriteJSON(w, http.StatusCreated, map[string]any{
		"msg":      "Feedback submitted",
		"feedback": saved,
	})
}

type tutorFeedback struct {
	Feedback      []models.Feedback `json:"feedback"`
	AverageRating float64           `json:"average_rating"`
	Count         int64             `json:"count"`
}

// ServeByTutor handles GET /api/feedbacks/tutor/{tutorId}: the tutor
// themselves or an admin.
func (h *Handler) ServeByTutor(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "tutorId"))
	if err != nil {
		h.ErrLog.Write(w, r, apierr.BadRequest("Invalid tutor id"))
		return
	}
	if id != authz.UserID(r) && !authz.IsAdmin(r) {
		h.ErrLog.Write(w, r, apierr.Forbidden("You may only view your own feedback"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rows, err := h.Feedback.ListByTutor(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing feedback", err)
		return
	}
	avg, count, err := h.Feedback.AverageRating(ctx, id)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error averaging ratings", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, tutorFeedback{Feedback: rows, AverageRating: avg, Count: count})
}
