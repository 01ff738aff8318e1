// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role values stored in User.Role.
const (
	RoleAdmin = "admin"
	RoleTutor = "tutor"
	RoleUser  = "user"
)

// IsValidRole reports whether r is a known role.
func IsValidRole(r string) bool {
	return r == RoleAdmin || r == RoleTutor || r == RoleUser
}

// User represents admins, tutors, and students (role "user").
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"full_name"`
	FullNameCI   string             `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`    // always lowercase
	PasswordHash string             `bson:"password_hash" json:"-"`
	PhoneNumber  string             `bson:"phone_number" json:"phone_number"`
	Location     string             `bson:"location" json:"location"`
	Role         string             `bson:"role" json:"role"` // admin | tutor | user

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the public projection of a User embedded in other
// resources (material uploader, message author).
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	FullName string             `bson:"full_name" json:"full_name"`
	Email    string             `bson:"email" json:"email"`
	Role     string             `bson:"role" json:"role"`
}
