package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/julb/iam-backend/pkg/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// collection names
const (
	COLLECTION_NAME_NOTIFICATION_TEMPLATES = "notificationTemplates"
	COLLECTION_NAME_SENT_NOTIFICATIONS     = "sentNotifications"
)

type MessagingDBService struct {
	DBClient     *mongo.Client
	timeout      int
	DBNamePrefix string
	TenantIDs    []string
}

func NewMessagingDBService(configs db.DBConfig) (*MessagingDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	messagingDBSc := &MessagingDBService{
		DBClient:     dbClient,
		timeout:      configs.Timeout,
		DBNamePrefix: configs.DBNamePrefix,
		TenantIDs:    configs.TenantIDs,
	}

	if configs.RunIndexCreation {
		messagingDBSc.ensureIndexes()
	}
	return messagingDBSc, nil
}

func (dbService *MessagingDBService) getDBName(tenantID string) string {
	return dbService.DBNamePrefix + tenantID + "_messaging"
}

func (dbService *MessagingDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *MessagingDBService) collectionNotificationTemplates(tenantID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(tenantID)).Collection(COLLECTION_NAME_NOTIFICATION_TEMPLATES)
}

func (dbService *MessagingDBService) collectionSentNotifications(tenantID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(tenantID)).Collection(COLLECTION_NAME_SENT_NOTIFICATIONS)
}

func (dbService *MessagingDBService) ensureIndexes() {
	slog.Debug("Ensuring indexes for messaging DB")

	for _, tenantID := range dbService.TenantIDs {
		if err := dbService.CreateIndexesForNotificationTemplates(tenantID); err != nil {
			slog.Error("Error creating indexes for notification templates", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
		if err := dbService.CreateIndexesForSentNotifications(tenantID); err != nil {
			slog.Error("Error creating indexes for sent notifications", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
	}
}
