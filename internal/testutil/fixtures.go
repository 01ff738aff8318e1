package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	materialstore "github.com/dalemusser/tutorhub/internal/app/store/materials"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given role.
// The password hash is a placeholder; use the users store to create
// accounts that must log in.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        email,
		PasswordHash: "x",
		PhoneNumber:  "0771234567",
		Location:     "Colombo",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := f.db.Collection("users").InsertOne(ctx, user)
	if err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin)
}

// CreateTutor creates a test tutor user.
func (f *Fixtures) CreateTutor(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleTutor)
}

// CreateStudent creates a test student (role "user").
func (f *Fixtures) CreateStudent(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleUser)
}

// CreateMaterial inserts an active material owned by uploader.
func (f *Fixtures) CreateMaterial(ctx context.Context, title, subject string, uploader primitive.ObjectID) models.Material {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Material{
		ID:          primitive.NewObjectID(),
		Title:       title,
		TitleCI:     materialstore.TitleKey(title),
		Description: "Fixture material description",
		Subject:     subject,
		Grade:       "10",
		Tags:        []string{},
		FileURL:     "http://localhost:8080/files/materials/fixture.pdf",
		FileID:      "materials/fixture.pdf",
		UploadedBy:  uploader,
		Status:      models.MaterialStatusActive,
		LikedBy:     []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := f.db.Collection("materials").InsertOne(ctx, m)
	if err != nil {
		f.t.Fatalf("failed to create test material: %v", err)
	}

	return m
}
