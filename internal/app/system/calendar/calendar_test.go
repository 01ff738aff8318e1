package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dalemusser/tutorhub/internal/domain/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func TestNew_DisabledWithoutCredentials(t *testing.T) {
	c, err := New(context.Background(), Config{ClientID: "id"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Enabled() {
		t.Fatal("client without refresh token should be disabled")
	}
	if _, err := c.CreateEvent(context.Background(), Event{}); err != ErrDisabled {
		t.Errorf("CreateEvent() error = %v, want ErrDisabled", err)
	}
	if err := c.DeleteEvent(context.Background(), "x"); err != ErrDisabled {
		t.Errorf("DeleteEvent() error = %v, want ErrDisabled", err)
	}
}

func TestNew_RejectsUnknownTimeZone(t *testing.T) {
	_, err := New(context.Background(), Config{
		ClientID: "id", ClientSecret: "secret", RefreshToken: "rt", TimeZone: "Mars/Olympus",
	}, nil)
	if err == nil {
		t.Fatal("expected time zone error")
	}
}

func TestLocalDateTime(t *testing.T) {
	if got := LocalDateTime("2026-03-01", "09:30"); got != "2026-03-01T09:30:00" {
		t.Errorf("LocalDateTime = %q", got)
	}
}

func TestIsGone(t *testing.T) {
	if !IsGone(&googleapi.Error{Code: 404}) || !IsGone(&googleapi.Error{Code: 410}) {
		t.Error("404/410 should be gone")
	}
	if IsGone(&googleapi.Error{Code: 500}) {
		t.Error("500 is not gone")
	}
}

// fakeCalendar records requests and answers like the Events API.
type fakeCalendar struct {
	mu           sync.Mutex
	requests     []string
	lastBody     map[string]any
	deleteStatus int
}

func (f *fakeCalendar) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	switch r.Method {
	case http.MethodPost, http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1"}`))
	case http.MethodDelete:
		if f.deleteStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.deleteStatus)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Not Found"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, f *fakeCalendar) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := newClient(context.Background(), Config{TimeZone: "Asia/Colombo"},
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return c
}

func TestClient_CreateUpdateDelete(t *testing.T) {
	f := &fakeCalendar{}
	c := newTestClient(t, f)
	ctx := context.Background()

	ev := Event{
		Title:     "Algebra review",
		Schedule:  models.SessionSchedule{Date: "2026-03-01", StartTime: "09:00", EndTime: "10:00"},
		Attendees: []string{"s@example.com", ""},
	}
	id, err := c.CreateEvent(ctx, ev)
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if id != "evt-1" {
		t.Errorf("event id = %q", id)
	}

	start, _ := f.lastBody["start"].(map[string]any)
	if start["dateTime"] != "2026-03-01T09:00:00" || start["timeZone"] != "Asia/Colombo" {
		t.Errorf("start = %v", start)
	}
	attendees, _ := f.lastBody["attendees"].([]any)
	if len(attendees) != 1 {
		t.Errorf("attendees = %v, want the one non-empty address", attendees)
	}

	if err := c.UpdateEvent(ctx, id, ev); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}
	if err := c.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("DeleteEvent() error = %v", err)
	}

	if len(f.requests) != 3 {
		t.Fatalf("requests = %v", f.requests)
	}
	if !strings.HasPrefix(f.requests[0], "POST") || !strings.Contains(f.requests[0], "/calendars/primary/events") {
		t.Errorf("create request = %q", f.requests[0])
	}
}

func TestClient_DeleteMissingEventIsNotAnError(t *testing.T) {
	f := &fakeCalendar{deleteStatus: http.StatusNotFound}
	c := newTestClient(t, f)
	if err := c.DeleteEvent(context.Background(), "gone"); err != nil {
		t.Errorf("DeleteEvent() error = %v, want nil", err)
	}
}
