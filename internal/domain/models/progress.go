// internal/domain/models/progress.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Progress tracks how far a student has come on a topic with a tutor.
// (student, tutor, topic) is unique, so writes are upserts.
type Progress struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Student           primitive.ObjectID  `bson:"student" json:"student"`
	Tutor             primitive.ObjectID  `bson:"tutor" json:"tutor"`
	Session           *primitive.ObjectID `bson:"session,omitempty" json:"session,omitempty"`
	Topic             string              `bson:"topic" json:"topic"`
	CompletionPercent int                 `bson:"completion_percent" json:"completion_percent"`
	Notes             string              `bson:"notes" json:"notes"`
	UpdatedBy         primitive.ObjectID  `bson:"updated_by" json:"updated_by"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	ProgressTopicMax = 200
	ProgressNotesMax = 2000
)
