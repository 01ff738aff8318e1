// internal/domain/models/feedback.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Feedback is a student's rating of a tutor.
type Feedback struct {
	ID      primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Student primitive.ObjectID  `bson:"student" json:"student"`
	Tutor   primitive.ObjectID  `bson:"tutor" json:"tutor"`
	Session *primitive.ObjectID `bson:"session,omitempty" json:"session,omitempty"`
	Rating  int                 `bson:"rating" json:"rating"` // 1..5
	Message string              `bson:"message" json:"message"`
	Course  string              `bson:"course,omitempty" json:"course,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	FeedbackRatingMin  = 1
	FeedbackRatingMax  = 5
	FeedbackMessageMax = 2000
)
