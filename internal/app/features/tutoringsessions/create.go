// internal/app/features/tutoringsessions/create.go
package tutoringsessions

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type scheduleInput struct {
	Date      string `json:"date" validate:"required,isodate" label:"Date"`
	StartTime string `json:"start_time" validate:"required,hhmm" label:"Start time"`
	EndTime   string `json:"end_time" validate:"required,hhmm" label:"End time"`
}

func (s scheduleInput) model() models.SessionSchedule {
	return models.SessionSchedule{Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime}
}

type createInput struct {
	Title        string        `json:"title" validate:"required,max=150" label:"Title"`
	Description  string        `json:"description" validate:"max=2000" label:"Description"`
	Tutor        string        `json:"tutor" validate:"omitempty,objectid" label:"Tutor"`
	Participants []string      `json:"participants" validate:"max=50,dive,objectid" label:"Participants"`
	Schedule     scheduleInput `json:"schedule" label:"Schedule"`
}

func objectIDs(hex []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(hex))
	for _, s := range hex {
		if id, err := primitive.ObjectIDFromHex(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// HandleCreate handles POST /api/tutoring-sessions. The session is stored
// first and then mirrored to the calendar.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	role, _, caller, _ := authz.UserCtx(r)
	tutor := caller
	if role == models.RoleAdmin && in.Tutor != "" {
		tutor, _ = primitive.ObjectIDFromHex(in.Tutor)
	}
	participants := objectIDs(in.Participants)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.checkParticipants(ctx, participants); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ts, err := h.Sessions.Create(ctx, models.TutoringSession{
		Title:        in.Title,
		Description:  in.Description,
		Tutor:        tutor,
		Participants: participants,
		Schedule:     in.Schedule.model(),
	})
	if err != nil {
		h.ErrLog.Write(w, r, storeErr(err))
		return
	}

	ts = h.sync(ctx, ts)
	h.audit(ctx, audit.EventSessionCreated, r, ts)
	uierrors.WriteJSON(w, http.StatusCreated, sessionResponse{Msg: "Tutoring session created", Session: ts})
}
