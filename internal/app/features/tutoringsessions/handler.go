// internal/app/features/tutoringsessions/handler.go
package tutoringsessions

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	sessionstore "github.com/dalemusser/tutorhub/internal/app/store/tutoringsessions"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/auditlog"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/calendar"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves tutoring sessions and keeps each one mirrored in the
// calendar. The database is the source of truth: calendar failures are
// logged and never fail a request.
type Handler struct {
	Sessions *sessionstore.Store
	Users    *userstore.Store
	Calendar calendar.Syncer
	AuditLog *auditlog.Logger
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

// NewHandler builds the handler. cal may be nil or disabled; sync is then
// skipped.
func NewHandler(db *mongo.Database, cal calendar.Syncer, audit *auditlog.Logger, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions: sessionstore.New(db),
		Users:    userstore.New(db),
		Calendar: cal,
		AuditLog: audit,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type sessionResponse struct {
	Msg     string                 `json:"msg,omitempty"`
	Session models.TutoringSession `json:"session"`
}

func sessionID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apierr.BadRequest("Invalid session id")
	}
	return id, nil
}

// storeErr maps store validation errors to client errors.
func storeErr(err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return apierr.NotFound("Tutoring session not found")
	case errors.Is(err, sessionstore.ErrTitleRequired),
		errors.Is(err, sessionstore.ErrInvalidSchedule),
		errors.Is(err, sessionstore.ErrInvalidStatus):
		return &apierr.Error{Kind: apierr.KindBadRequest, Message: capitalize(err.Error()), Err: err}
	}
	return err
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// load fetches a session the caller may change: its tutor or an admin.
func (h *Handler) load(ctx context.Context, r *http.Request, id primitive.ObjectID) (models.TutoringSession, error) {
	ts, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		return models.TutoringSession{}, storeErr(err)
	}
	if ts.Tutor != authz.UserID(r) && !authz.IsAdmin(r) {
		return models.TutoringSession{}, apierr.Forbidden("Only the session's tutor or an admin may change it")
	}
	return ts, nil
}

// checkParticipants rejects ids that do not belong to any user.
func (h *Handler) checkParticipants(ctx context.Context, ids []primitive.ObjectID) error {
	found, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return apierr.BadRequest("Unknown participant: " + id.Hex())
		}
	}
	return nil
}

func (h *Handler) calendarOn() bool {
	return h.Calendar != nil && h.Calendar.Enabled()
}

func (h *Handler) event(ctx context.Context, ts models.TutoringSession) (calendar.Event, error) {
	emails, err := h.Users.Emails(ctx, ts.Participants)
	if err != nil {
		return calendar.Event{}, err
	}
	return calendar.Event{
		Title:       ts.Title,
		Description: ts.Description,
		Schedule:    ts.Schedule,
		Attendees:   emails,
	}, nil
}

// sync creates or updates the session's calendar event and returns the
// session as stored afterwards.
func (h *Handler) sync(ctx context.Context, ts models.TutoringSession) models.TutoringSession {
	if !h.calendarOn() {
		h.Log.Warn("calendar disabled; session not synced", zap.String("session_id", ts.ID.Hex()))
		return ts
	}
	ev, err := h.event(ctx, ts)
	if err != nil {
		h.Log.Warn("calendar sync: attendee lookup failed", zap.String("session_id", ts.ID.Hex()), zap.Error(err))
		return ts
	}

	if ts.GoogleEventID != "" {
		err := h.Calendar.UpdateEvent(ctx, ts.GoogleEventID, ev)
		if err == nil {
			return ts
		}
		if !calendar.IsGone(err) {
			h.Log.Warn("calendar update failed", zap.String("session_id", ts.ID.Hex()), zap.Error(err))
			return ts
		}
		// The event was removed on the calendar side; recreate it.
	}

	eventID, err := h.Calendar.CreateEvent(ctx, ev)
	if err != nil {
		h.Log.Warn("calendar create failed", zap.String("session_id", ts.ID.Hex()), zap.Error(err))
		return ts
	}
	if err := h.Sessions.SetEventID(ctx, ts.ID, eventID); err != nil {
		h.Log.Warn("could not record calendar event id",
			zap.String("session_id", ts.ID.Hex()), zap.String("event_id", eventID), zap.Error(err))
		return ts
	}
	ts.GoogleEventID = eventID
	return ts
}

func (h *Handler) audit(ctx context.Context, eventType string, r *http.Request, ts models.TutoringSession) {
	h.AuditLog.SessionChanged(ctx, eventType, authz.UserID(r), ts.ID, ts.Title)
}
