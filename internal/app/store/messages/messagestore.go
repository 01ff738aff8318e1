// internal/app/store/messages/messagestore.go
package messagestore

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
	ErrSubjectInvalid = errors.New("subject is required and must be at most 150 characters")
	ErrBodyInvalid    = errors.New("message is required and must be at most 2000 characters")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("messages")}
}

// Create inserts a message. Body is expected to be sanitized already.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
	if m.Subject == "" || utf8.RuneCountInString(m.Subject) > models.MessageSubjectMax {
		return models.Message{}, ErrSubjectInvalid
	}
	if m.Body == "" || utf8.RuneCountInString(m.Body) > models.MessageBodyMax {
		return models.Message{}, ErrBodyInvalid
	}

	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.CreatedAt = now
	m.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// List returns messages newest first. A non-nil createdBy restricts the
// result to that author. limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, createdBy *primitive.ObjectID, limit int64) ([]models.Message, error) {
	filter := bson.M{}
	if createdBy != nil {
		filter["created_by"] = *createdBy
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
