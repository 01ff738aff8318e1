// internal/domain/models/material.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Material describes an uploaded study resource. The file bytes live in
// object storage; FileURL/FileID point at them.
//
// LikedBy is the source of truth for likes: Metrics.Likes always equals
// len(LikedBy). Neither LikedBy nor FileID is ever serialized to clients.
type Material struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	TitleCI string             `bson:"title_ci" json:"-"` // trimmed, lowercase; accents kept

	Description string   `bson:"description" json:"description"`
	Subject     string   `bson:"subject" json:"subject"` // always lowercase
	Grade       string   `bson:"grade,omitempty" json:"grade,omitempty"`
	Tags        []string `bson:"tags" json:"tags"`

	FileURL string `bson:"file_url" json:"file_url"`
	FileID  string `bson:"file_id,omitempty" json:"-"` // storage public id

	UploadedBy primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	Status     string             `bson:"status" json:"status"`

	Metrics MaterialMetrics      `bson:"metrics" json:"metrics"`
	LikedBy []primitive.ObjectID `bson:"liked_by" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// MaterialMetrics holds the engagement counters of a material.
type MaterialMetrics struct {
	Views     int64 `bson:"views" json:"views"`
	Downloads int64 `bson:"downloads" json:"downloads"`
	Likes     int64 `bson:"likes" json:"likes"`
}

// IsLikedBy reports whether userID is in the LikedBy set.
func (m *Material) IsLikedBy(userID primitive.ObjectID) bool {
	for _, id := range m.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}
