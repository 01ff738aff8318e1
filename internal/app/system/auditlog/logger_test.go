package auditlog_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/tutorhub/internal/app/store/audit"
	"github.com/dalemusser/tutorhub/internal/app/system/auditlog"
	"github.com/dalemusser/tutorhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// no-ops, must not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, primitive.NewObjectID(), "a@example.com")
	logger.MaterialCreated(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "Algebra")
}

func TestLogger_Log_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "off", Material: "off"})

	userID := primitive.NewObjectID()
	logger.LoginSuccess(ctx, userID, "a@example.com")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_Log_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(store, zap.New(core), auditlog.Config{Auth: "db"})

	userID := primitive.NewObjectID()
	logger.LoginSuccess(ctx, userID, "a@example.com")

	events, err := store.GetByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("GetByUser failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].EventType != audit.EventLoginSuccess {
		t.Errorf("event type = %q", events[0].EventType)
	}
	if logs.Len() != 0 {
		t.Errorf("'db' should not log to zap, got %d entries", logs.Len())
	}
}

func TestLogger_Log_ConfigLogOnly(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Material: "log"})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.MaterialDeleted(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "Algebra")

	if logs.Len() != 1 {
		t.Fatalf("expected 1 zap entry, got %d", logs.Len())
	}
	fields := logs.All()[0].ContextMap()
	if fields["event_type"] != audit.EventMaterialDeleted || fields["detail_title"] != "Algebra" {
		t.Errorf("fields = %v", fields)
	}
}

func TestCaptureRequest_AttributesIP(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Material: "log"})

	h := auditlog.CaptureRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.MaterialCreated(r.Context(), primitive.NewObjectID(), primitive.NewObjectID(), "Algebra")
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/materials", nil)
	req.Header.Set("X-Real-IP", "10.0.0.7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 zap entry, got %d", logs.Len())
	}
	if ip := logs.All()[0].ContextMap()["ip"]; ip != "10.0.0.7" {
		t.Errorf("ip = %v, want 10.0.0.7", ip)
	}
}
