// internal/app/store/feedback/feedbackstore.go
package feedbackstore

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/tutorhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrRatingInvalid  = errors.New("rating must be between 1 and 5")
	ErrMessageInvalid = errors.New("message is required and must be at most 2000 characters")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("feedbacks")}
}

// Create inserts a feedback entry.
func (s *Store) Create(ctx context.Context, f models.Feedback) (models.Feedback, error) {
	if f.Rating < models.FeedbackRatingMin || f.Rating > models.FeedbackRatingMax {
		return models.Feedback{}, ErrRatingInvalid
	}
	f.Message = strings.TrimSpace(f.Message)
	f.Course = strings.TrimSpace(f.Course)
	if f.Message == "" || utf8.RuneCountInString(f.Message) > models.FeedbackMessageMax {
		return models.Feedback{}, ErrMessageInvalid
	}

	now := time.Now().UTC()
	f.ID = primitive.NewObjectID()
	f.CreatedAt = now
	f.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

// ListByTutor returns the feedback a tutor received, newest first.
func (s *Store) ListByTutor(ctx context.Context, tutor primitive.ObjectID) ([]models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"tutor": tutor}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Feedback{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AverageRating returns the mean rating and count for a tutor. A tutor
// with no feedback yields (0, 0).
func (s *Store) AverageRating(ctx context.Context, tutor primitive.ObjectID) (float64, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tutor": tutor}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Avg   float64 `bson:"avg"`
		Count int64   `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return rows[0].Avg, rows[0].Count, nil
}
