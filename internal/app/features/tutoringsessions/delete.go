// internal/app/features/tutoringsessions/delete.go
package tutoringsessions

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /api/tutoring-sessions/{id}. The calendar
// event goes first, best effort, then the record.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ts, err := h.load(ctx, r, id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if ts.GoogleEventID != "" && h.calendarOn() {
		if err := h.Calendar.DeleteEvent(ctx, ts.GoogleEventID); err != nil {
			h.Log.Warn("calendar delete failed", zap.String("session_id", ts.ID.Hex()), zap.Error(err))
		}
	}

	deleted, err := h.Sessions.Delete(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, storeErr(err))
		return
	}
	h.audit(ctx, audit.EventSessionDeleted, r, deleted)
	uierrors.WriteJSON(w, http.StatusOK, sessionResponse{Msg: "Tutoring session deleted", Session: deleted})
}

// unsync removes the calendar event of a cancelled session and clears the
// stored id.
func (h *Handler) unsync(ctx context.Context, ts models.TutoringSession) models.TutoringSession {
	if !h.calendarOn() {
		return ts
	}
	if err := h.Calendar.DeleteEvent(ctx, ts.GoogleEventID); err != nil {
		h.Log.Warn("calendar delete failed", zap.String("session_id", ts.ID.Hex()), zap.Error(err))
		return ts
	}
	if err := h.Sessions.SetEventID(ctx, ts.ID, ""); err != nil {
		h.Log.Warn("could not clear calendar event id", zap.String("session_id", ts.ID.Hex()), zap.Error(err))
		return ts
	}
	ts.GoogleEventID = ""
	return ts
}
