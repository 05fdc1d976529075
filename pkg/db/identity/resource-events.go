package identity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RESOURCE_EVENT_TTL = 60 * 60 * 24 * 90 // seconds
)

// ResourceEvent is an audit record of a create/update/delete on an identity resource.
type ResourceEvent struct {
	EventID      string    `bson:"eventID" json:"eventID"`
	ResourceType string    `bson:"resourceType" json:"resourceType"`
	ResourceID   string    `bson:"resourceID" json:"resourceID"`
	EventType    string    `bson:"eventType" json:"eventType"`
	Actor        string    `bson:"actor" json:"actor"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func (dbService *IdentityDBService) CreateIndexesForResourceEvents(tenantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionResourceEvents(tenantID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "resourceType", Value: 1},
					{Key: "resourceID", Value: 1},
				},
			},
			{
				Keys: bson.D{
					{Key: "createdAt", Value: 1},
				},
				Options: options.Index().SetExpireAfterSeconds(RESOURCE_EVENT_TTL),
			},
		},
	)
	return err
}

func (dbService *IdentityDBService) AddResourceEvent(tenantID string, event ResourceEvent) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	event.CreatedAt = time.Now()
	_, err := dbService.collectionResourceEvents(tenantID).InsertOne(ctx, event)
	return err
}
