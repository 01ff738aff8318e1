package register_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/features/register"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/app/system/indexes"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/dalemusser/tutorhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*register.Handler, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	return register.NewHandler(db, nil, uierrors.NewErrorLogger(logger, false), logger), db
}

func post(h *register.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleRegister(rec, req)
	return rec
}

func body(name, email string) string {
	return `{"full_name":"` + name + `","email":"` + email + `","password":"secret123","phone_number":"0771234567","location":"Kandy"}`
}

func TestHandleRegister_FirstAccountIsAdmin(t *testing.T) {
	h, db := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if rec := post(h, body("First User", "first@example.com")); rec.Code != http.StatusCreated {
		t.Fatalf("first: status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if rec := post(h, body("Second User", "Second@Example.com")); rec.Code != http.StatusCreated {
		t.Fatalf("second: status = %d; body=%s", rec.Code, rec.Body.String())
	}

	users := userstore.New(db)
	first, err := users.GetByEmail(ctx, "first@example.com")
	if err != nil {
		t.Fatalf("GetByEmail(first): %v", err)
	}
	if first.Role != models.RoleAdmin {
		t.Errorf("first role = %q, want admin", first.Role)
	}
	second, err := users.GetByEmail(ctx, "second@example.com")
	if err != nil {
		t.Fatalf("GetByEmail(second): %v", err)
	}
	if second.Role != models.RoleUser {
		t.Errorf("second role = %q, want user", second.Role)
	}
	if second.PasswordHash == "secret123" || !auth.CheckPassword(second.PasswordHash, "secret123") {
		t.Error("password should be stored as a bcrypt hash")
	}
}

func TestHandleRegister_DuplicateEmail(t *testing.T) {
	h, _ := newTestHandler(t)

	if rec := post(h, body("First User", "dup@example.com")); rec.Code != http.StatusCreated {
		t.Fatalf("first: status = %d", rec.Code)
	}
	rec := post(h, body("Other User", "DUP@example.com"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Email already exists") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHandleRegister_Validation(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"short name", body("Al", "al@example.com")},
		{"bad email", body("Alice Smith", "alice")},
		{"short password", `{"full_name":"Alice Smith","email":"a@example.com","password":"123","phone_number":"0771234567","location":"Kandy"}`},
		{"bad phone", `{"full_name":"Alice Smith","email":"a@example.com","password":"secret123","phone_number":"12345","location":"Kandy"}`},
		{"missing location", `{"full_name":"Alice Smith","email":"a@example.com","password":"secret123","phone_number":"0771234567"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(h, tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body=%s", rec.Code, rec.Body.String())
			}
		})
	}
}
