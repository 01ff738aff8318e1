// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a note a student sends to the tutoring staff, optionally with
// an attached image held in object storage.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	Subject   string             `bson:"subject" json:"subject"`
	Body      string             `bson:"body" json:"body"`
	ImageURL  string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ImageID   string             `bson:"image_id,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	MessageSubjectMax = 150
	MessageBodyMax    = 2000
)
