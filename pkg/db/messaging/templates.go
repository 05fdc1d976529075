package messaging

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

func (dbService *MessagingDBService) CreateIndexesForNotificationTemplates(tenantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionNotificationTemplates(tenantID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "messageType", Value: 1},
					{Key: "channel", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
	)
	return err
}

func (dbService *MessagingDBService) GetNotificationTemplate(tenantID string, messageType string, channel string) (messagingTypes.NotificationTemplate, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"messageType": messageType, "channel": channel}
	var template messagingTypes.NotificationTemplate
	err := dbService.collectionNotificationTemplates(tenantID).FindOne(ctx, filter).Decode(&template)
	return template, err
}

func (dbService *MessagingDBService) SaveNotificationTemplate(tenantID string, template messagingTypes.NotificationTemplate) (messagingTypes.NotificationTemplate, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	filter := bson.M{"messageType": template.MessageType, "channel": template.Channel}
	upsert := true
	_, err := dbService.collectionNotificationTemplates(tenantID).ReplaceOne(ctx, filter, template, &options.ReplaceOptions{Upsert: &upsert})
	return template, err
}

func (dbService *MessagingDBService) DeleteNotificationTemplate(tenantID string, messageType string, channel string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"messageType": messageType, "channel": channel}
	_, err := dbService.collectionNotificationTemplates(tenantID).DeleteOne(ctx, filter)
	return err
}
