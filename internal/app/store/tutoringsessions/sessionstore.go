// internal/app/store/tutoringsessions/sessionstore.go
package tutoringsessionstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidSchedule = errors.New("schedule needs a YYYY-MM-DD date and an end time after the start time")
	ErrInvalidStatus   = errors.New("invalid session status")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tutoring_sessions")}
}

// ValidSchedule reports whether sc has a real calendar date and
// start < end, both HH:MM.
func ValidSchedule(sc models.SessionSchedule) bool {
	if _, err := time.Parse("2006-01-02", sc.Date); err != nil {
		return false
	}
	start, err := time.Parse("15:04", sc.StartTime)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", sc.EndTime)
	if err != nil {
		return false
	}
	return end.After(start)
}

// Create inserts a session. Status defaults to scheduled and duplicate
// participants are dropped.
func (s *Store) Create(ctx context.Context, ts models.TutoringSession) (models.TutoringSession, error) {
	ts.Title = strings.TrimSpace(ts.Title)
	ts.Description = strings.TrimSpace(ts.Description)
	if ts.Title == "" {
		return models.TutoringSession{}, ErrTitleRequired
	}
	if !ValidSchedule(ts.Schedule) {
		return models.TutoringSession{}, ErrInvalidSchedule
	}
	if ts.Status == "" {
		ts.Status = models.SessionStatusScheduled
	}
	if !models.IsValidSessionStatus(ts.Status) {
		return models.TutoringSession{}, ErrInvalidStatus
	}
	ts.Participants = dedupe(ts.Participants)

	now := time.Now().UTC()
	ts.ID = primitive.NewObjectID()
	ts.CreatedAt = now
	ts.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ts); err != nil {
		return models.TutoringSession{}, err
	}
	return ts, nil
}

func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// GetByID returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TutoringSession, error) {
	var ts models.TutoringSession
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ts)
	return ts, err
}

// Update holds the mutable fields of a session. Nil means unchanged.
type Update struct {
	Title        *string
	Description  *string
	Participants *[]primitive.ObjectID
	Schedule     *models.SessionSchedule
	Status       *string
}

// Update applies u and returns the updated session. The schedule is
// validated as a whole. Returns mongo.ErrNoDocuments if id is unknown.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.TutoringSession, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			return models.TutoringSession{}, ErrTitleRequired
		}
		set["title"] = t
	}
	if u.Description != nil {
		set["description"] = strings.TrimSpace(*u.Description)
	}
	if u.Participants != nil {
		set["participants"] = dedupe(*u.Participants)
	}
	if u.Schedule != nil {
		if !ValidSchedule(*u.Schedule) {
			return models.TutoringSession{}, ErrInvalidSchedule
		}
		set["schedule"] = *u.Schedule
	}
	if u.Status != nil {
		if !models.IsValidSessionStatus(*u.Status) {
			return models.TutoringSession{}, ErrInvalidStatus
		}
		set["status"] = *u.Status
	}

	var out models.TutoringSession
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	return out, err
}

// SetEventID records the calendar event mirroring the session. An empty
// eventID clears it.
func (s *Store) SetEventID(ctx context.Context, id primitive.ObjectID, eventID string) error {
	update := bson.M{"$set": bson.M{"google_event_id": eventID}}
	if eventID == "" {
		update = bson.M{"$unset": bson.M{"google_event_id": ""}}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes a session and returns it. Returns mongo.ErrNoDocuments if
// id is unknown.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.TutoringSession, error) {
	var ts models.TutoringSession
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&ts)
	return ts, err
}

// ListFor returns sessions where user is the tutor or a participant,
// ordered by date and start time. A nil user lists every session.
func (s *Store) ListFor(ctx context.Context, user *primitive.ObjectID) ([]models.TutoringSession, error) {
	filter := bson.M{}
	if user != nil {
		filter = bson.M{"$or": []bson.M{
			{"tutor": *user},
			{"participants": *user},
		}}
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "schedule.date", Value: 1},
		{Key: "schedule.start_time", Value: 1},
		{Key: "_id", Value: 1},
	})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.TutoringSession{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
