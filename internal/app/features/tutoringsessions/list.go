// internal/app/features/tutoringsessions/list.go
package tutoringsessions

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ServeList handles GET /api/tutoring-sessions: every session for an
// admin, otherwise the ones the caller teaches or attends.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	var who *primitive.ObjectID
	if !authz.IsAdmin(r) {
		id := authz.UserID(r)
		who = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sessions, err := h.Sessions.ListFor(ctx, who)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing tutoring sessions", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// ServeView handles GET /api/tutoring-sessions/{id} for the tutor, a
// participant or an admin.
func (h *Handler) ServeView(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ts, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		h.ErrLog.Write(w, r, storeErr(err))
		return
	}
	if !authz.IsAdmin(r) && !involves(ts.Tutor, ts.Participants, authz.UserID(r)) {
		h.ErrLog.Write(w, r, storeErr(mongo.ErrNoDocuments))
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, sessionResponse{Session: ts})
}

func involves(tutor primitive.ObjectID, participants []primitive.ObjectID, user primitive.ObjectID) bool {
	if tutor == user {
		return true
	}
	for _, p := range participants {
		if p == user {
			return true
		}
	}
	return false
}
