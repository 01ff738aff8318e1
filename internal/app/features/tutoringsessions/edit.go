// internal/app/features/tutoringsessions/edit.go
package tutoringsessions

import (
	"context"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	sessionstore "github.com/dalemusser/tutorhub/internal/app/store/tutoringsessions"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
)

type patchInput struct {
	Title        *string        `json:"title" validate:"omitempty,max=150" label:"Title"`
	Description  *string        `json:"description" validate:"omitempty,max=2000" label:"Description"`
	Participants *[]string      `json:"participants" validate:"omitempty,max=50,dive,objectid" label:"Participants"`
	Schedule     *scheduleInput `json:"schedule" label:"Schedule"`
	Status       *string        `json:"status" validate:"omitempty,oneof=scheduled cancelled completed" label:"Status"`
}

// HandleUpdate handles PATCH /api/tutoring-sessions/{id}. The calendar
// event is updated, or created if the session never got one.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var in patchInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if in.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*in.Status))
		in.Status = &s
	}
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.load(ctx, r, id); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	u := sessionstore.Update{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
	}
	if in.Participants != nil {
		ids := objectIDs(*in.Participants)
		if err := h.checkParticipants(ctx, ids); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		u.Participants = &ids
	}
	if in.Schedule != nil {
		sc := in.Schedule.model()
		u.Schedule = &sc
	}

	ts, err := h.Sessions.Update(ctx, id, u)
	if err != nil {
		h.ErrLog.Write(w, r, storeErr(err))
		return
	}

	if ts.Status == models.SessionStatusCancelled && ts.GoogleEventID != "" {
		ts = h.unsync(ctx, ts)
	} else if ts.Status != models.SessionStatusCancelled {
		ts = h.sync(ctx, ts)
	}
	h.audit(ctx, audit.EventSessionUpdated, r, ts)
	uierrors.WriteJSON(w, http.StatusOK, sessionResponse{Msg: "Tutoring session updated", Session: ts})
}
