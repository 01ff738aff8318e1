// internal/app/system/calendar/calendar.go
//
// Package calendar mirrors tutoring sessions into a Google Calendar using
// a long-lived OAuth2 refresh token.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DefaultTimeZone is used when none is configured.
const DefaultTimeZone = "Asia/Colombo"

// ErrDisabled is returned when no credentials are configured.
var ErrDisabled = errors.New("calendar: not configured")

// Config holds the OAuth2 client and the calendar to write to.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string
	CalendarID   string // default "primary"
	TimeZone     string // IANA name, default DefaultTimeZone
}

func (c Config) complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Event is the calendar view of a session.
type Event struct {
	Title       string
	Description string
	Schedule    models.SessionSchedule
	Attendees   []string
}

// Syncer creates, updates and deletes calendar events. *Client satisfies it.
type Syncer interface {
	Enabled() bool
	CreateEvent(ctx context.Context, ev Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// Client talks to Google Calendar. The zero value and a Client built
// without credentials are disabled.
type Client struct {
	svc        *gcal.Service
	calendarID string
	tz         string
}

// New builds a Client. Missing credentials yield a disabled Client and a
// warning, not an error; an unknown time zone is an error.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if !cfg.complete() {
		if log != nil {
			log.Warn("google calendar credentials missing; session sync disabled")
		}
		return &Client{}, nil
	}

	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return newClient(ctx, cfg, option.WithTokenSource(ts))
}

func newClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	tz := cfg.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("calendar time zone %q: %w", tz, err)
	}
	calID := cfg.CalendarID
	if calID == "" {
		calID = "primary"
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &Client{svc: svc, calendarID: calID, tz: tz}, nil
}

// Enabled reports whether calls reach Google.
func (c *Client) Enabled() bool {
	return c != nil && c.svc != nil
}

// CreateEvent inserts ev and returns the new event id. Attendees are
// notified by Google.
func (c *Client) CreateEvent(ctx context.Context, ev Event) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	created, err := c.svc.Events.Insert(c.calendarID, c.toGoogle(ev)).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create calendar event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent replaces the event's details with ev.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, ev Event) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	_, err := c.svc.Events.Update(c.calendarID, eventID, c.toGoogle(ev)).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update calendar event %s: %w", eventID, err)
	}
	return nil
}

// DeleteEvent removes an event. An event that is already gone is not an
// error.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	err := c.svc.Events.Delete(c.calendarID, eventID).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err == nil || IsGone(err) {
		return nil
	}
	return fmt.Errorf("delete calendar event %s: %w", eventID, err)
}

// IsGone reports a 404 or 410 from the Calendar API.
func IsGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}

func (c *Client) toGoogle(ev Event) *gcal.Event {
	attendees := make([]*gcal.EventAttendee, 0, len(ev.Attendees))
	for _, email := range ev.Attendees {
		if email == "" {
			continue
		}
		attendees = append(attendees, &gcal.EventAttendee{Email: email})
	}
	return &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: LocalDateTime(ev.Schedule.Date, ev.Schedule.StartTime), TimeZone: c.tz},
		End:         &gcal.EventDateTime{DateTime: LocalDateTime(ev.Schedule.Date, ev.Schedule.EndTime), TimeZone: c.tz},
		Attendees:   attendees,
	}
}

// LocalDateTime joins a YYYY-MM-DD date and an HH:MM time into the
// RFC 3339 local form the API pairs with a TimeZone.
func LocalDateTime(date, hhmm string) string {
	return date + "T" + hhmm + ":00"
}
