package materialstore_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	materialstore "github.com/dalemusser/tutorhub/internal/app/store/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/indexes"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/dalemusser/tutorhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newMaterial(title, subject string) models.Material {
	return models.Material{
		Title:       title,
		Description: "A description long enough to pass validation",
		Subject:     subject,
		Grade:       "10",
		Tags:        []string{"algebra"},
		FileURL:     "https://cdn.example.com/materials/a.pdf",
		FileID:      "materials/a.pdf",
		UploadedBy:  primitive.NewObjectID(),
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.TitleCI != "algebra basics" {
		t.Errorf("TitleCI = %q", created.TitleCI)
	}
	if created.Status != models.MaterialStatusActive {
		t.Errorf("expected default status 'active', got %q", created.Status)
	}
	if created.Metrics != (models.MaterialMetrics{}) {
		t.Errorf("expected zero metrics, got %+v", created.Metrics)
	}
	if created.LikedBy == nil || len(created.LikedBy) != 0 {
		t.Errorf("expected empty LikedBy, got %v", created.LikedBy)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name   string
		mutate func(*models.Material)
	}{
		{"short title", func(m *models.Material) { m.Title = "ab" }},
		{"long title", func(m *models.Material) { m.Title = strings.Repeat("x", models.MaterialTitleMax+1) }},
		{"short description", func(m *models.Material) { m.Description = "short" }},
		{"missing subject", func(m *models.Material) { m.Subject = "" }},
		{"non-http url", func(m *models.Material) { m.FileURL = "ftp://host/file.pdf" }},
		{"empty url", func(m *models.Material) { m.FileURL = "" }},
		{"bad status", func(m *models.Material) { m.Status = "deleted" }},
		{"too many tags", func(m *models.Material) {
			m.Tags = strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")
		}},
		{"long tag", func(m *models.Material) { m.Tags = []string{strings.Repeat("t", models.MaterialTagMax+1)} }},
		{"missing uploader", func(m *models.Material) { m.UploadedBy = primitive.NilObjectID }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMaterial("Valid Title", "math")
			tt.mutate(&m)
			_, err := store.Create(ctx, m)
			var ve *materialstore.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestStore_Create_DuplicateIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := materialstore.New(db)

	if _, err := store.Create(ctx, newMaterial("Algebra Basics", "math")); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, newMaterial("ALGEBRA basics", "math"))
	if !errors.Is(err, materialstore.ErrDuplicateTitle) {
		t.Errorf("expected ErrDuplicateTitle, got %v", err)
	}
}

func TestStore_Create_DuplicateIndexKeepsAccents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := materialstore.New(db)

	if _, err := store.Create(ctx, newMaterial("Café Basics", "french")); err != nil {
		t.Fatalf("Create accented title failed: %v", err)
	}
	plain, err := store.Create(ctx, newMaterial("Cafe Basics", "french"))
	if err != nil {
		t.Fatalf("unaccented title should coexist with the accented one, got %v", err)
	}
	if plain.TitleCI != "cafe basics" {
		t.Errorf("TitleCI = %q, want %q", plain.TitleCI, "cafe basics")
	}
	if _, err := store.Create(ctx, newMaterial("CAFÉ basics", "french")); !errors.Is(err, materialstore.ErrDuplicateTitle) {
		t.Errorf("case-only variant: expected ErrDuplicateTitle, got %v", err)
	}
}

func TestTitleKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Algebra Basics ", "algebra basics"},
		{"Café Basics", "café basics"},
		{"ÉCOLE", "école"},
	}
	for _, tt := range tests {
		if got := materialstore.TitleKey(tt.in); got != tt.want {
			t.Errorf("TitleKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStore_TitleExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra (Part 1)", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	archived := newMaterial("Geometry", "math")
	archived.Status = models.MaterialStatusArchived
	if _, err := store.Create(ctx, archived); err != nil {
		t.Fatalf("Create archived failed: %v", err)
	}

	tests := []struct {
		name    string
		title   string
		subject string
		exclude *primitive.ObjectID
		want    bool
	}{
		{"exact", "Algebra (Part 1)", "math", nil, true},
		{"case-insensitive", "algebra (PART 1)", "math", nil, true},
		{"other subject", "Algebra (Part 1)", "physics", nil, false},
		{"prefix only", "Algebra", "math", nil, false},
		{"regex metacharacters are literal", "Algebra .Part 1.", "math", nil, false},
		{"wildcard input", ".*", "math", nil, false},
		{"excluded self", "Algebra (Part 1)", "math", &created.ID, false},
		{"archived ignored", "Geometry", "math", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.TitleExists(ctx, tt.title, tt.subject, tt.exclude)
			if err != nil {
				t.Fatalf("TitleExists failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("TitleExists(%q, %q) = %v, want %v", tt.title, tt.subject, got, tt.want)
			}
		})
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := materialstore.New(db)

	uploader := primitive.NewObjectID()
	for _, seed := range []struct{ title, subject, grade string }{
		{"Algebra Basics", "math", "9"},
		{"Quadratic Equations", "math", "10"},
		{"Newton Laws", "physics", "10"},
	} {
		m := newMaterial(seed.title, seed.subject)
		m.Grade = seed.grade
		m.UploadedBy = uploader
		if _, err := store.Create(ctx, m); err != nil {
			t.Fatalf("Create %q failed: %v", seed.title, err)
		}
	}
	other := newMaterial("Cell Biology", "biology")
	other.Status = models.MaterialStatusPending
	if _, err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tests := []struct {
		name      string
		q         materialstore.ListQuery
		wantTotal int64
		wantLen   int
	}{
		{"all", materialstore.ListQuery{}, 4, 4},
		{"subject", materialstore.ListQuery{Subject: "math"}, 2, 2},
		{"grade", materialstore.ListQuery{Grade: "10"}, 2, 2},
		{"status", materialstore.ListQuery{Status: "pending"}, 1, 1},
		{"unknown status ignored", materialstore.ListQuery{Status: "bogus"}, 4, 4},
		{"uploader", materialstore.ListQuery{UploadedBy: &uploader}, 3, 3},
		{"keyword", materialstore.ListQuery{Keyword: "newton"}, 1, 1},
		{"page", materialstore.ListQuery{Skip: 2, Limit: 1}, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := store.List(ctx, tt.q)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(items) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(items), tt.wantLen)
			}
			for _, m := range items {
				if m.LikedBy != nil {
					t.Error("LikedBy must not be loaded by List")
				}
			}
		})
	}

	items, _, err := store.List(ctx, materialstore.ListQuery{Sort: materialstore.SortTitle})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if items[0].Title != "Algebra Basics" || items[3].Title != "Quadratic Equations" {
		t.Errorf("title sort order wrong: %q .. %q", items[0].Title, items[3].Title)
	}
}

func TestStore_GetAndIncrementViews(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const k = 5
	for i := 1; i <= k; i++ {
		got, err := store.GetAndIncrementViews(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetAndIncrementViews failed: %v", err)
		}
		if got.Metrics.Views != int64(i) {
			t.Errorf("call %d: views = %d", i, got.Metrics.Views)
		}
	}

	_, err = store.GetAndIncrementViews(ctx, primitive.NewObjectID())
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_IncrementDownloads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementDownloads(ctx, created.ID); err != nil {
				t.Errorf("IncrementDownloads failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Metrics.Downloads != 10 {
		t.Errorf("downloads = %d, want 10", got.Metrics.Downloads)
	}

	matched, err := store.IncrementViews(ctx, primitive.NewObjectID())
	if err != nil || matched {
		t.Errorf("unknown id: matched=%v err=%v", matched, err)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	title := "  Algebra Fundamentals "
	tags := []string{"x", "y"}
	updated, err := store.Update(ctx, created.ID, materialstore.Update{Title: &title, Tags: &tags})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "Algebra Fundamentals" || updated.TitleCI != "algebra fundamentals" {
		t.Errorf("title = %q / %q", updated.Title, updated.TitleCI)
	}
	if len(updated.Tags) != 2 {
		t.Errorf("tags = %v", updated.Tags)
	}
	if updated.UploadedBy != created.UploadedBy {
		t.Error("uploaded_by must not change")
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) && !updated.UpdatedAt.Equal(created.UpdatedAt) {
		t.Error("updated_at should move forward")
	}

	bad := "archived-ish"
	if _, err := store.Update(ctx, created.ID, materialstore.Update{Status: &bad}); err == nil {
		t.Error("expected validation error for bad status")
	}

	if _, err := store.Update(ctx, primitive.NewObjectID(), materialstore.Update{Title: &title}); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.ID != created.ID || deleted.FileID != "materials/a.pdf" {
		t.Errorf("deleted = %+v", deleted)
	}

	if _, err := store.Delete(ctx, created.ID); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("second delete: expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_LikeUnlike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	user := primitive.NewObjectID()

	likes, matched, err := store.Like(ctx, created.ID, user)
	if err != nil || !matched || likes != 1 {
		t.Fatalf("Like: likes=%d matched=%v err=%v", likes, matched, err)
	}

	// Already liked: guard rejects, count unchanged.
	_, matched, err = store.Like(ctx, created.ID, user)
	if err != nil || matched {
		t.Errorf("second Like: matched=%v err=%v", matched, err)
	}

	liked, err := store.IsLikedBy(ctx, created.ID, user)
	if err != nil || !liked {
		t.Errorf("IsLikedBy = %v, %v", liked, err)
	}

	likes, matched, err = store.Unlike(ctx, created.ID, user)
	if err != nil || !matched || likes != 0 {
		t.Fatalf("Unlike: likes=%d matched=%v err=%v", likes, matched, err)
	}

	_, matched, err = store.Unlike(ctx, created.ID, user)
	if err != nil || matched {
		t.Errorf("second Unlike: matched=%v err=%v", matched, err)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Metrics.Likes != int64(len(got.LikedBy)) {
		t.Errorf("likes %d != len(liked_by) %d", got.Metrics.Likes, len(got.LikedBy))
	}

	if _, err := store.IsLikedBy(ctx, primitive.NewObjectID(), user); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_ConcurrentLikesStayConsistent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := materialstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newMaterial("Algebra Basics", "math"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	user := primitive.NewObjectID()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Like(ctx, created.ID, user)
		}()
	}
	wg.Wait()

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Metrics.Likes != 1 || len(got.LikedBy) != 1 {
		t.Errorf("likes=%d liked_by=%d, want 1/1", got.Metrics.Likes, len(got.LikedBy))
	}
}
