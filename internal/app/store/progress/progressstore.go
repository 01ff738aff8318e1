// internal/app/store/progress/progressstore.go
package progressstore

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/tutorhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrTopicRequired  = errors.New("topic is required")
	ErrTopicTooLong   = errors.New("topic is too long")
	ErrNotesTooLong   = errors.New("notes are too long")
	ErrPercentInvalid = errors.New("completion percent must be between 0 and 100")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("progress")}
}

// Upsert writes the progress row for (Student, Tutor, Topic), creating it
// if needed, and returns the stored document.
func (s *Store) Upsert(ctx context.Context, p models.Progress) (models.Progress, error) {
	p.Topic = strings.TrimSpace(p.Topic)
	p.Notes = strings.TrimSpace(p.Notes)
	switch {
	case p.Topic == "":
		return models.Progress{}, ErrTopicRequired
	case utf8.RuneCountInString(p.Topic) > models.ProgressTopicMax:
		return models.Progress{}, ErrTopicTooLong
	case utf8.RuneCountInString(p.Notes) > models.ProgressNotesMax:
		return models.Progress{}, ErrNotesTooLong
	case p.CompletionPercent < 0 || p.CompletionPercent > 100:
		return models.Progress{}, ErrPercentInvalid
	}

	now := time.Now().UTC()
	filter := bson.M{"student": p.Student, "tutor": p.Tutor, "topic": p.Topic}
	set := bson.M{
		"completion_percent": p.CompletionPercent,
		"notes":              p.Notes,
		"updated_by":         p.UpdatedBy,
		"updated_at":         now,
	}
	if p.Session != nil {
		set["session"] = *p.Session
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.Progress
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	// Two concurrent upserts can both miss and race on the unique index;
	// the loser retries as a plain update.
	if wafflemongo.IsDup(err) {
		err = s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	}
	if err != nil {
		return models.Progress{}, err
	}
	return out, nil
}

// ListByStudent returns a student's progress rows, most recently updated first.
func (s *Store) ListByStudent(ctx context.Context, student primitive.ObjectID) ([]models.Progress, error) {
	return s.find(ctx, bson.M{"student": student})
}

// ListByTutor returns the progress rows a tutor owns, most recently updated first.
func (s *Store) ListByTutor(ctx context.Context, tutor primitive.ObjectID) ([]models.Progress, error) {
	return s.find(ctx, bson.M{"tutor": tutor})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Progress, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Progress{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
