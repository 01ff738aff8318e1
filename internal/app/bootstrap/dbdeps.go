// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/tutorhub/internal/app/system/calendar"
	"github.com/dalemusser/tutorhub/internal/app/system/mailer"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
	"github.com/dalemusser/tutorhub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app. Every
// process-wide client is built once in ConnectDB and shared by reference.
type DBDeps struct {
	TutorHubMongoClient   *mongo.Client
	TutorHubMongoDatabase *mongo.Database

	// Storage is the active object store. LocalStorage is set as well when
	// files are kept on disk and must be served by this process.
	Storage      storage.Gateway
	LocalStorage *storage.Local

	Mailer         *mailer.Mailer
	Calendar       *calendar.Client
	FeedbackNotify *workers.FeedbackNotify
}
