package identity

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
	COLLECTION_NAME_USERS           = "users"
	COLLECTION_NAME_CREDENTIALS     = "credentials"
	COLLECTION_NAME_SESSIONS        = "sessions"
	COLLECTION_NAME_RESOURCE_EVENTS = "resourceEvents"
)

type IdentityDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBNamePrefix    string
	TenantIDs       []string
}

func NewIdentityDBService(configs db.DBConfig) (*IdentityDBService, error) {
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

	identityDBSc := &IdentityDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBNamePrefix:    configs.DBNamePrefix,
		TenantIDs:       configs.TenantIDs,
	}

	if configs.RunIndexCreation {
		identityDBSc.ensureIndexes()
	}
	return identityDBSc, nil
}

func (dbService *IdentityDBService) getDBName(tenantID string) string {
	return dbService.DBNamePrefix + tenantID + "_identity"
}

func (dbService *IdentityDBService) getContext() (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(dbService.timeout)*time.Second)
}

func (dbService *IdentityDBService) collectionUsers(tenantID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(tenantID)).Collection(COLLECTION_NAME_USERS)
}

func (dbService *IdentityDBService) collectionCredentials(tenantID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(tenantID)).Collection(COLLECTION_NAME_CREDENTIALS)
}

func (dbService *IdentityDBService) collectionSessions(tenantID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(tenantID)).Collection(COLLECTION_NAME_SESSIONS)
}

func (dbService *IdentityDBService) collectionResourceEvents(tenantID string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.getDBName(tenantID)).Collection(COLLECTION_NAME_RESOURCE_EVENTS)
}

func (dbService *IdentityDBService) ensureIndexes() {
	slog.Debug("Ensuring indexes for identity DB")

	for _, tenantID := range dbService.TenantIDs {
		if err := dbService.CreateIndexesForUsers(tenantID); err != nil {
			slog.Error("Error creating indexes for users", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
		if err := dbService.CreateIndexesForCredentials(tenantID); err != nil {
			slog.Error("Error creating indexes for credentials", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
		if err := dbService.CreateIndexesForSessions(tenantID); err != nil {
			slog.Error("Error creating indexes for sessions", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
		if err := dbService.CreateIndexesForResourceEvents(tenantID); err != nil {
			slog.Error("Error creating indexes for resource events", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
	}
}
