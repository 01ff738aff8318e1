// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/tutorhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	// helper: ensure collection exists (with truthful logging) and then validator (if provided)
	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			// DocumentDB or other deployments may not support collMod/validators.
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("materials", materialsSchema())
	ensure("progress", progressSchema())
	ensure("messages", messagesSchema())
	ensure("feedbacks", feedbacksSchema())
	ensure("tutoring_sessions", tutoringSessionsSchema())

	// Append-only; no validator needed.
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	objectID = bson.M{"bsonType": "objectId"}
	counter  = bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0}
)

func strLen(min, max int) bson.M {
	return bson.M{"bsonType": "string", "minLength": min, "maxLength": max}
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "email", "password_hash", "role"},
			"properties": bson.M{
				"full_name":     nonBlank,
				"full_name_ci":  bson.M{"bsonType": "string"},
				"email":         nonBlank,
				"password_hash": nonBlank,
				"phone_number":  bson.M{"bsonType": "string"},
				"role":          bson.M{"enum": bson.A{models.RoleAdmin, models.RoleTutor, models.RoleUser}},
			},
		},
	}
}

func materialsSchema() bson.M {
	statuses := bson.A{}
	for _, s := range models.MaterialStatuses {
		statuses = append(statuses, s)
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "title_ci", "description", "subject", "file_url", "uploaded_by", "status", "metrics"},
			"properties": bson.M{
				"title":       strLen(models.MaterialTitleMin, models.MaterialTitleMax),
				"title_ci":    nonBlank,
				"description": strLen(models.MaterialDescriptionMin, models.MaterialDescriptionMax),
				"subject":     strLen(1, models.MaterialSubjectMax),
				"grade":       strLen(0, models.MaterialGradeMax),
				"tags": bson.M{
					"bsonType": "array",
					"maxItems": models.MaterialTagsMax,
					"items":    strLen(1, models.MaterialTagMax),
				},
				"file_url":    bson.M{"bsonType": "string", "pattern": "^https?://"},
				"uploaded_by": objectID,
				"status":      bson.M{"enum": statuses},
				"metrics": bson.M{
					"bsonType": "object",
					"required": bson.A{"views", "downloads", "likes"},
					"properties": bson.M{
						"views":     counter,
						"downloads": counter,
						"likes":     counter,
					},
				},
				"liked_by": bson.M{"bsonType": "array", "items": objectID},
			},
		},
	}
}

func progressSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"student", "tutor", "topic", "completion_percent"},
			"properties": bson.M{
				"student":            objectID,
				"tutor":              objectID,
				"topic":              strLen(1, models.ProgressTopicMax),
				"completion_percent": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 100},
				"notes":              strLen(0, models.ProgressNotesMax),
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"created_by", "subject", "body"},
			"properties": bson.M{
				"created_by": objectID,
				"subject":    strLen(1, models.MessageSubjectMax),
				"body":       strLen(1, models.MessageBodyMax),
				"image_url":  bson.M{"bsonType": "string", "pattern": "^https?://"},
			},
		},
	}
}

func feedbacksSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"student", "tutor", "rating", "message"},
			"properties": bson.M{
				"student": objectID,
				"tutor":   objectID,
				"rating": bson.M{
					"bsonType": bson.A{"int", "long"},
					"minimum":  models.FeedbackRatingMin,
					"maximum":  models.FeedbackRatingMax,
				},
				"message": strLen(1, models.FeedbackMessageMax),
			},
		},
	}
}

func tutoringSessionsSchema() bson.M {
	hhmm := bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "tutor", "schedule", "status"},
			"properties": bson.M{
				"title":        nonBlank,
				"tutor":        objectID,
				"participants": bson.M{"bsonType": "array", "items": objectID},
				"schedule": bson.M{
					"bsonType": "object",
					"required": bson.A{"date", "start_time", "end_time"},
					"properties": bson.M{
						"date":       bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
						"start_time": hhmm,
						"end_time":   hhmm,
					},
				},
				"status": bson.M{"enum": bson.A{models.SessionStatusScheduled, models.SessionStatusCancelled, models.SessionStatusCompleted}},
			},
		},
	}
}
