// internal/domain/models/tutoringsession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tutoring session status values.
const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCancelled = "cancelled"
	SessionStatusCompleted = "completed"
)

// TutoringSession is a scheduled meeting between a tutor and participants.
// GoogleEventID is set once the session has been mirrored to the calendar.
type TutoringSession struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title         string               `bson:"title" json:"title"`
	Description   string               `bson:"description,omitempty" json:"description,omitempty"`
	Tutor         primitive.ObjectID   `bson:"tutor" json:"tutor"`
	Participants  []primitive.ObjectID `bson:"participants" json:"participants"`
	Schedule      SessionSchedule      `bson:"schedule" json:"schedule"`
	Status        string               `bson:"status" json:"status"`
	GoogleEventID string               `bson:"google_event_id,omitempty" json:"google_event_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// SessionSchedule is a local-time slot: Date is YYYY-MM-DD, times are HH:MM.
type SessionSchedule struct {
	Date      string `bson:"date" json:"date"`
	StartTime string `bson:"start_time" json:"start_time"`
	EndTime   string `bson:"end_time" json:"end_time"`
}

// IsValidSessionStatus reports whether s is a known session status.
func IsValidSessionStatus(s string) bool {
	return s == SessionStatusScheduled || s == SessionStatusCancelled || s == SessionStatusCompleted
}
