package messaging

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

const (
	SENT_NOTIFICATION_TTL = 60 * 60 * 24 * 30 // seconds
)

func (dbService *MessagingDBService) CreateIndexesForSentNotifications(tenantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSentNotifications(tenantID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "userID", Value: 1},
					{Key: "sentAt", Value: 1},
				},
			},
			{
				Keys: bson.D{
					{Key: "sentAt", Value: 1},
				},
				Options: options.Index().SetExpireAfterSeconds(SENT_NOTIFICATION_TTL),
			},
		},
	)
	return err
}

func (dbService *MessagingDBService) AddToSentNotifications(tenantID string, notification messagingTypes.SentNotification) (messagingTypes.SentNotification, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	notification.SentAt = time.Now()
	res, err := dbService.collectionSentNotifications(tenantID).InsertOne(ctx, notification)
	if err != nil {
		return notification, err
	}
	notification.ID = res.InsertedID.(primitive.ObjectID)
	return notification, nil
}

func (dbService *MessagingDBService) GetLastSentNotification(tenantID string, userID string, messageType string) (messagingTypes.SentNotification, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "messageType": messageType}
	sort := bson.M{"sentAt": -1}

	var notification messagingTypes.SentNotification
	err := dbService.collectionSentNotifications(tenantID).FindOne(ctx, filter, options.FindOne().SetSort(sort)).Decode(&notification)
	return notification, err
}
