package materialsvc

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	materialstore "github.com/dalemusser/tutorhub/internal/app/store/materials"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeStore is an in-memory MaterialStore.
type fakeStore struct {
	mu   sync.Mutex
	docs map[primitive.ObjectID]models.Material

	createErr error
	updateErr error
	existsErr error

	// raceLike makes the next Like find that a concurrent request already
	// liked on the caller's behalf: membership is added and the guard fails.
	raceLike bool

	lastList materialstore.ListQuery
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[primitive.ObjectID]models.Material{}}
}

func (f *fakeStore) Create(_ context.Context, m models.Material) (models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return models.Material{}, f.createErr
	}
	m.ID = primitive.NewObjectID()
	if m.Status == "" {
		m.Status = models.MaterialStatusActive
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	m.Metrics = models.MaterialMetrics{}
	m.LikedBy = []primitive.ObjectID{}
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt
	f.docs[m.ID] = m
	return m, nil
}

func (f *fakeStore) TitleExists(_ context.Context, title, subject string, exclude *primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for id, m := range f.docs {
		if exclude != nil && id == *exclude {
			continue
		}
		if m.Status == models.MaterialStatusActive && m.Subject == subject && strings.EqualFold(m.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) List(_ context.Context, q materialstore.ListQuery) ([]models.Material, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastList = q
	var out []models.Material
	for _, m := range f.docs {
		if q.Subject != "" && m.Subject != q.Subject {
			continue
		}
		out = append(out, m)
	}
	total := int64(len(out))
	if q.Skip >= total {
		return []models.Material{}, total, nil
	}
	end := q.Skip + q.Limit
	if end > total {
		end = total
	}
	return out[q.Skip:end], total, nil
}

func (f *fakeStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return models.Material{}, mongo.ErrNoDocuments
	}
	return m, nil
}

func (f *fakeStore) GetAndIncrementViews(_ context.Context, id primitive.ObjectID) (models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return models.Material{}, mongo.ErrNoDocuments
	}
	m.Metrics.Views++
	f.docs[id] = m
	return m, nil
}

func (f *fakeStore) bump(id primitive.ObjectID, fn func(*models.MaterialMetrics)) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return false, nil
	}
	fn(&m.Metrics)
	f.docs[id] = m
	return true, nil
}

func (f *fakeStore) IncrementViews(_ context.Context, id primitive.ObjectID) (bool, error) {
	return f.bump(id, func(mm *models.MaterialMetrics) { mm.Views++ })
}

func (f *fakeStore) IncrementDownloads(_ context.Context, id primitive.ObjectID) (bool, error) {
	return f.bump(id, func(mm *models.MaterialMetrics) { mm.Downloads++ })
}

func (f *fakeStore) Update(_ context.Context, id primitive.ObjectID, u materialstore.Update) (models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return models.Material{}, f.updateErr
	}
	m, ok := f.docs[id]
	if !ok {
		return models.Material{}, mongo.ErrNoDocuments
	}
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.Description != nil {
		m.Description = *u.Description
	}
	if u.Subject != nil {
		m.Subject = *u.Subject
	}
	if u.Grade != nil {
		m.Grade = *u.Grade
	}
	if u.Tags != nil {
		m.Tags = *u.Tags
	}
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.FileURL != nil {
		m.FileURL = *u.FileURL
	}
	if u.FileID != nil {
		m.FileID = *u.FileID
	}
	m.UpdatedAt = time.Now().UTC()
	f.docs[id] = m
	return m, nil
}

func (f *fakeStore) Delete(_ context.Context, id primitive.ObjectID) (models.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return models.Material{}, mongo.ErrNoDocuments
	}
	delete(f.docs, id)
	return m, nil
}

func (f *fakeStore) IsLikedBy(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	return indexOf(m.LikedBy, userID) >= 0, nil
}

func (f *fakeStore) Like(_ context.Context, id, userID primitive.ObjectID) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if f.raceLike && ok {
		f.raceLike = false
		m.LikedBy = append(m.LikedBy, userID)
		m.Metrics.Likes++
		f.docs[id] = m
		return 0, false, nil
	}
	if !ok || indexOf(m.LikedBy, userID) >= 0 {
		return 0, false, nil
	}
	m.LikedBy = append(m.LikedBy, userID)
	m.Metrics.Likes++
	f.docs[id] = m
	return m.Metrics.Likes, true, nil
}

func (f *fakeStore) Unlike(_ context.Context, id, userID primitive.ObjectID) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	if !ok {
		return 0, false, nil
	}
	i := indexOf(m.LikedBy, userID)
	if i < 0 {
		return 0, false, nil
	}
	m.LikedBy = append(append([]primitive.ObjectID{}, m.LikedBy[:i]...), m.LikedBy[i+1:]...)
	m.Metrics.Likes--
	f.docs[id] = m
	return m.Metrics.Likes, true, nil
}

func (f *fakeStore) get(id primitive.ObjectID) (models.Material, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.docs[id]
	return m, ok
}

func indexOf(ids []primitive.ObjectID, id primitive.ObjectID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	users map[primitive.ObjectID]models.UserSummary
	err   error
}

func (f *fakeUsers) Summaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[primitive.ObjectID]models.UserSummary{}
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// fakeGateway records storage calls.
type fakeGateway struct {
	mu        sync.Mutex
	objects   map[string]bool
	deleted   []string
	deleteErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{objects: map[string]bool{}}
}

func (g *fakeGateway) Put(_ context.Context, area, filename string, r io.Reader, size int64, contentType string) (storage.Object, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := area + "/" + filename
	g.objects[id] = true
	return storage.Object{ID: id, URL: "https://files.test/" + id, Size: size, ContentType: contentType}, nil
}

func (g *fakeGateway) Delete(_ context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	if g.deleteErr != nil {
		return g.deleteErr
	}
	delete(g.objects, id)
	return nil
}

func (g *fakeGateway) IDFromURL(rawURL string) (string, bool) {
	const prefix = "https://files.test/"
	if !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(rawURL, prefix), true
}

func (g *fakeGateway) has(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.objects[id]
}

func (g *fakeGateway) deletedIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deleted...)
}

// presigningGateway adds time-limited links on top of fakeGateway.
type presigningGateway struct {
	*fakeGateway
	err error
}

func (g *presigningGateway) PresignedURL(_ context.Context, id string, expiry time.Duration) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "https://signed.test/" + id + "?ttl=" + expiry.String(), nil
}

var errBackend = errors.New("backend unavailable")
