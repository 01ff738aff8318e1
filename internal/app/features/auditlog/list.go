// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/normalize"
	"github.com/dalemusser/tutorhub/internal/app/system/paging"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

type listResponse struct {
	Events      []audit.Event `json:"events"`
	TotalCount  int64         `json:"total_count"`
	TotalPages  int64         `json:"total_pages"`
	CurrentPage int           `json:"current_page"`
	Limit       int           `json:"limit"`
}

// ServeList handles GET /api/audit. Filters ("all" means unset): category, event_type, user
// (affected user id), actor, start_date and end_date (YYYY-MM-DD,
// inclusive), page and limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p := paging.Parse(r)
	filter.Limit = int64(p.Limit)
	filter.Offset = p.Skip()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var (
		events []audit.Event
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = h.Events.Query(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = h.Events.CountByFilter(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing audit events", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Events:      events,
		TotalCount:  total,
		TotalPages:  paging.TotalPages(total, p.Limit),
		CurrentPage: p.Page,
		Limit:       p.Limit,
	})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	f := audit.QueryFilter{
		Category:  normalize.Filter(query.Get(r, "category")),
		EventType: normalize.Filter(query.Get(r, "event_type")),
	}
	if s := query.Get(r, "user"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, apierr.BadRequest("Invalid user id")
		}
		f.UserID = &id
	}
	if s := query.Get(r, "actor"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return f, apierr.BadRequest("Invalid actor id")
		}
		f.ActorID = &id
	}
	if s := query.Get(r, "start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, apierr.BadRequest("start_date must be YYYY-MM-DD")
		}
		f.StartTime = &t
	}
	if s := query.Get(r, "end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return f, apierr.BadRequest("end_date must be YYYY-MM-DD")
		}
		// End of day
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}
	return f, nil
}
