package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long"

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create token manager: %v", err)
	}
	return tm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewTokenManager_RejectsShortSecret(t *testing.T) {
	if _, err := auth.NewTokenManager("short", time.Hour, false, zap.NewNop()); err == nil {
		t.Error("expected error for short secret")
	}

	_, err := auth.NewTokenManager(strings.Repeat("s", auth.MinSecretLen-1), time.Hour, false, zap.NewNop())
	if err == nil {
		t.Fatal("expected error one below the minimum length")
	}
	if !strings.Contains(err.Error(), "at least 16 characters") {
		t.Errorf("error %q does not state the enforced minimum", err.Error())
	}
	if _, err := auth.NewTokenManager(strings.Repeat("s", auth.MinSecretLen), time.Hour, false, zap.NewNop()); err != nil {
		t.Errorf("secret of exactly the minimum length rejected: %v", err)
	}
}

func TestIssueAndParse(t *testing.T) {
	tm := newTestTokenManager(t)

	tok, exp, err := tm.Issue("507f1f77bcf86cd799439011", "tutor")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Error("expiry should be in the future")
	}

	claims, err := tm.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "507f1f77bcf86cd799439011" || claims.Role != "tutor" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParse_RejectsForeignSignature(t *testing.T) {
	other, _ := auth.NewTokenManager("another-secret-that-is-long-enough", time.Hour, false, zap.NewNop())
	tok, _, _ := other.Issue("u1", "user")

	if _, err := newTestTokenManager(t).Parse(tok); err == nil {
		t.Error("expected signature error")
	}
}

func TestParse_RejectsExpired(t *testing.T) {
	tm, _ := auth.NewTokenManager(testSecret, time.Nanosecond, false, zap.NewNop())
	tok, _, _ := tm.Issue("u1", "user")
	time.Sleep(1100 * time.Millisecond)

	if _, err := tm.Parse(tok); err == nil {
		t.Error("expected expiry error")
	}
}

func TestLoadUser_BearerHeader(t *testing.T) {
	tm := newTestTokenManager(t)
	tok, _, _ := tm.Issue("u1", "admin")

	var got *auth.SessionUser
	h := tm.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.ID != "u1" || got.Role != "admin" {
		t.Fatalf("user = %+v", got)
	}
}

func TestLoadUser_Cookie(t *testing.T) {
	tm := newTestTokenManager(t)
	tok, _, _ := tm.Issue("u2", "user")

	var found bool
	h := tm.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tok})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !found {
		t.Error("expected user from cookie")
	}
}

type stubFetcher struct {
	user *auth.SessionUser
	err  error
}

func (s stubFetcher) FetchUser(ctx context.Context, id string) (*auth.SessionUser, error) {
	return s.user, s.err
}

func TestLoadUser_FetcherRefreshesRole(t *testing.T) {
	tm := newTestTokenManager(t)
	tm.SetUserFetcher(stubFetcher{user: &auth.SessionUser{ID: "u1", Name: "Ann", Role: "tutor"}})
	tok, _, _ := tm.Issue("u1", "user")

	var got *auth.SessionUser
	h := tm.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Role != "tutor" || got.Name != "Ann" {
		t.Fatalf("user = %+v, want refreshed tutor", got)
	}
}

func TestLoadUser_DeletedAccountIsAnonymous(t *testing.T) {
	tm := newTestTokenManager(t)
	tm.SetUserFetcher(stubFetcher{})
	tok, _, _ := tm.Issue("gone", "user")

	var found bool
	h := tm.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("deleted account should not be signed in")
	}
}

func TestLoadUser_FetcherErrorFallsBackToClaims(t *testing.T) {
	tm := newTestTokenManager(t)
	tm.SetUserFetcher(stubFetcher{err: errors.New("db down")})
	tok, _, _ := tm.Issue("u1", "user")

	var got *auth.SessionUser
	h := tm.LoadUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.Role != "user" {
		t.Fatalf("user = %+v", got)
	}
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	rec := httptest.NewRecorder()
	auth.RequireSignedIn(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/materials", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message"`) {
		t.Errorf("expected JSON message body, got %q", rec.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		user *auth.SessionUser
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &auth.SessionUser{ID: "u", Role: "user"}, http.StatusForbidden},
		{"allowed role", &auth.SessionUser{ID: "u", Role: "tutor"}, http.StatusOK},
		{"case-insensitive", &auth.SessionUser{ID: "u", Role: "ADMIN"}, http.StatusOK},
	}

	guard := auth.RequireRole("tutor", "admin")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/materials", nil)
			if tt.user != nil {
				req = auth.WithUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			guard(okHandler()).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestSetAndClearCookie(t *testing.T) {
	tm := newTestTokenManager(t)

	rec := httptest.NewRecorder()
	tm.SetCookie(rec, "abc", time.Now().Add(time.Hour))
	c := rec.Result().Cookies()
	if len(c) != 1 || c[0].Name != auth.CookieName || !c[0].HttpOnly || c[0].Value != "abc" {
		t.Fatalf("cookie = %+v", c)
	}

	rec = httptest.NewRecorder()
	tm.ClearCookie(rec)
	c = rec.Result().Cookies()
	if len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("cleared cookie = %+v", c)
	}
}
