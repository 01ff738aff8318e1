package progress_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/features/progress"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/dalemusser/tutorhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*progress.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	return progress.NewHandler(db, uierrors.NewErrorLogger(logger, false), logger), testutil.NewFixtures(t, db)
}

func do(h *progress.Handler, actor *testutil.TestUser, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = testutil.WithUser(req, *actor)
	}
	rec := httptest.NewRecorder()
	progress.Routes(h).ServeHTTP(rec, req)
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []models.Progress {
	t.Helper()
	var resp struct {
		Progress []models.Progress `json:"progress"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Progress
}

func TestHandleUpsert_TutorRecordsAsSelf(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tutor := testutil.AsTestUser(fx.CreateTutor(ctx, "Tutor", "tutor@example.com"))
	other := fx.CreateTutor(ctx, "Other", "other@example.com")
	student := fx.CreateStudent(ctx, "Student", "student@example.com")

	body := `{"student":"` + student.ID.Hex() + `","tutor":"` + other.ID.Hex() + `","topic":"Fractions","completion_percent":40}`
	rec := do(h, &tutor, http.MethodPost, "/", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}

	// Same key again updates in place.
	body = `{"student":"` + student.ID.Hex() + `","topic":"Fractions","completion_percent":75,"notes":"good"}`
	if rec := do(h, &tutor, http.MethodPost, "/", body); rec.Code != http.StatusOK {
		t.Fatalf("second upsert status = %d; body=%s", rec.Code, rec.Body.String())
	}

	rows := decodeList(t, do(h, &tutor, http.MethodGet, "/tutor/"+tutor.ID, ""))
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].CompletionPercent != 75 || rows[0].Notes != "good" {
		t.Errorf("row not updated: %+v", rows[0])
	}
	if rows[0].Tutor.Hex() != tutor.ID {
		t.Errorf("tutor = %s, want caller %s", rows[0].Tutor.Hex(), tutor.ID)
	}
}

func TestHandleUpsert_AdminNamesTutor(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.AsTestUser(fx.CreateAdmin(ctx, "Admin", "admin@example.com"))
	tutor := fx.CreateTutor(ctx, "Tutor", "tutor@example.com")
	student := fx.CreateStudent(ctx, "Student", "student@example.com")

	body := `{"student":"` + student.ID.Hex() + `","tutor":"` + tutor.ID.Hex() + `","topic":"Algebra","completion_percent":10}`
	rec := do(h, &admin, http.MethodPost, "/", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Progress models.Progress `json:"progress"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Progress.Tutor != tutor.ID {
		t.Errorf("tutor = %s, want %s", resp.Progress.Tutor.Hex(), tutor.ID.Hex())
	}
	if resp.Progress.UpdatedBy.Hex() != admin.ID {
		t.Errorf("updated_by = %s, want admin", resp.Progress.UpdatedBy.Hex())
	}
}

func TestHandleUpsert_Rejections(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tutor := testutil.AsTestUser(fx.CreateTutor(ctx, "Tutor", "tutor@example.com"))
	studentUser := fx.CreateStudent(ctx, "Student", "student@example.com")
	student := testutil.AsTestUser(studentUser)
	sid := studentUser.ID.Hex()

	tests := []struct {
		name  string
		actor *testutil.TestUser
		body  string
		want  int
	}{
		{"anonymous", nil, `{}`, http.StatusUnauthorized},
		{"student forbidden", &student, `{"student":"` + sid + `","topic":"x","completion_percent":1}`, http.StatusForbidden},
		{"missing percent", &tutor, `{"student":"` + sid + `","topic":"x"}`, http.StatusBadRequest},
		{"percent too high", &tutor, `{"student":"` + sid + `","topic":"x","completion_percent":101}`, http.StatusBadRequest},
		{"missing topic", &tutor, `{"student":"` + sid + `","completion_percent":5}`, http.StatusBadRequest},
		{"bad student id", &tutor, `{"student":"nope","topic":"x","completion_percent":5}`, http.StatusBadRequest},
		{"unknown student", &tutor, `{"student":"000000000000000000000001","topic":"x","completion_percent":5}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, tt.actor, http.MethodPost, "/", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body=%s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestServe_Visibility(t *testing.T) {
	h, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := testutil.AsTestUser(fx.CreateAdmin(ctx, "Admin", "admin@example.com"))
	tutor := testutil.AsTestUser(fx.CreateTutor(ctx, "Tutor", "tutor@example.com"))
	otherTutor := testutil.AsTestUser(fx.CreateTutor(ctx, "Other", "other@example.com"))
	alice := testutil.AsTestUser(fx.CreateStudent(ctx, "Alice", "alice@example.com"))
	bob := testutil.AsTestUser(fx.CreateStudent(ctx, "Bob", "bob@example.com"))

	body := `{"student":"` + alice.ID + `","topic":"Geometry","completion_percent":50}`
	if rec := do(h, &tutor, http.MethodPost, "/", body); rec.Code != http.StatusOK {
		t.Fatalf("seed status = %d; body=%s", rec.Code, rec.Body.String())
	}

	if rows := decodeList(t, do(h, &alice, http.MethodGet, "/me", "")); len(rows) != 1 {
		t.Errorf("alice /me = %d rows, want 1", len(rows))
	}
	if rows := decodeList(t, do(h, &bob, http.MethodGet, "/me", "")); len(rows) != 0 {
		t.Errorf("bob /me = %d rows, want 0", len(rows))
	}

	tests := []struct {
		name  string
		actor testutil.TestUser
		path  string
		want  int
	}{
		{"student own", alice, "/student/" + alice.ID, http.StatusOK},
		{"student other", bob, "/student/" + alice.ID, http.StatusForbidden},
		{"tutor views student", otherTutor, "/student/" + alice.ID, http.StatusOK},
		{"tutor own list", tutor, "/tutor/" + tutor.ID, http.StatusOK},
		{"tutor other list", otherTutor, "/tutor/" + tutor.ID, http.StatusForbidden},
		{"admin tutor list", admin, "/tutor/" + tutor.ID, http.StatusOK},
		{"bad id", admin, "/student/zzz", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, &tt.actor, http.MethodGet, tt.path, "")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d; body=%s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
