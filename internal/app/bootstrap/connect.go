// internal/app/bootstrap/connect.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/tutorhub/internal/app/system/calendar"
	"github.com/dalemusser/tutorhub/internal/app/system/indexes"
	"github.com/dalemusser/tutorhub/internal/app/system/mailer"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
	"github.com/dalemusser/tutorhub/internal/app/system/validators"
	"github.com/dalemusser/tutorhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 15 * time.Second

// ConnectDB connects to MongoDB and builds the other back-end clients:
// object storage, the SMTP mailer, the calendar client and the feedback
// notification worker.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	deps := DBDeps{
		TutorHubMongoClient:   client,
		TutorHubMongoDatabase: client.Database(appCfg.MongoDatabase),
	}

	if err := connectStorage(cctx, appCfg, &deps, logger); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}

	deps.Mailer = mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	})
	if !deps.Mailer.Enabled() {
		logger.Warn("SMTP not configured; email is disabled")
	}

	cal, err := calendar.New(ctx, calendar.Config{
		ClientID:     appCfg.GoogleClientID,
		ClientSecret: appCfg.GoogleClientSecret,
		RedirectURL:  appCfg.GoogleRedirectURI,
		RefreshToken: appCfg.GoogleRefreshToken,
		CalendarID:   appCfg.CalendarID,
		TimeZone:     appCfg.CalendarTimeZone,
	}, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, err
	}
	deps.Calendar = cal

	notifier := mailer.NewFeedbackNotifier(deps.Mailer, mailer.NotifyConfig{
		Enabled:    appCfg.FeedbackEmailEnabled && deps.Mailer.Enabled(),
		ToTutor:    appCfg.FeedbackEmailToTutor,
		ToAdmin:    appCfg.FeedbackEmailToAdmin,
		AdminEmail: appCfg.AdminNotifyEmail,
		SiteName:   appCfg.SiteName,
	}, logger)
	deps.FeedbackNotify = workers.NewFeedbackNotify(notifier, logger, 0)

	return deps, nil
}

func connectStorage(ctx context.Context, appCfg AppConfig, deps *DBDeps, logger *zap.Logger) error {
	switch appCfg.StorageType {
	case "minio":
		m, err := storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  appCfg.MinIOEndpoint,
			AccessKey: appCfg.MinIOAccessKey,
			SecretKey: appCfg.MinIOSecretKey,
			Bucket:    appCfg.MinIOBucket,
			UseSSL:    appCfg.MinIOUseSSL,
			PublicURL: appCfg.MinIOPublicURL,
		})
		if err != nil {
			return fmt.Errorf("minio storage: %w", err)
		}
		deps.Storage = m
		logger.Info("using MinIO storage", zap.String("bucket", appCfg.MinIOBucket))
	default:
		l, err := storage.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
		if err != nil {
			return fmt.Errorf("local storage: %w", err)
		}
		deps.Storage = l
		deps.LocalStorage = l
		logger.Info("using local storage", zap.String("path", appCfg.StorageLocalPath))
	}
	return nil
}

// EnsureSchema creates indexes and collection validators. Both are
// idempotent and run on every start.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.TutorHubMongoDatabase
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("ensure validators failed", zap.Error(err))
		return err
	}
	return nil
}
