package identity

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func (dbService *IdentityDBService) CreateIndexesForUsers(tenantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionUsers(tenantID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "userID", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "recoveryDevices.address", Value: 1},
				},
			},
			{
				Keys: bson.D{
					{Key: "timestamps.createdAt", Value: 1},
				},
			},
		},
	)
	return err
}

func (dbService *IdentityDBService) CreateUser(tenantID string, user idTypes.User) (idTypes.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	user.Timestamps.CreatedAt = time.Now().Unix()
	res, err := dbService.collectionUsers(tenantID).InsertOne(ctx, user)
	if err != nil {
		return user, err
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return user, nil
}

func (dbService *IdentityDBService) GetUser(tenantID string, userID string) (idTypes.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID}
	var user idTypes.User
	err := dbService.collectionUsers(tenantID).FindOne(ctx, filter).Decode(&user)
	return user, err
}

// GetUserByDeviceAddress finds the user owning a recovery device with the given
// address, e.g. for login by mail address.
func (dbService *IdentityDBService) GetUserByDeviceAddress(tenantID string, deviceType string, address string) (idTypes.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"recoveryDevices": bson.M{"$elemMatch": bson.M{"type": deviceType, "address": address}}}
	var user idTypes.User
	err := dbService.collectionUsers(tenantID).FindOne(ctx, filter).Decode(&user)
	return user, err
}

func (dbService *IdentityDBService) ReplaceUser(tenantID string, user idTypes.User) (idTypes.User, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	user.Timestamps.UpdatedAt = time.Now().Unix()
	filter := bson.M{"userID": user.UserID}
	res, err := dbService.collectionUsers(tenantID).ReplaceOne(ctx, filter, user)
	if err != nil {
		return user, err
	}
	if res.MatchedCount == 0 {
		return user, errors.New("user not found")
	}
	return user, nil
}

// FindUnverifiedUserIDs lists users that are still locked and were created before the
// given time. Used by the cleanup job to remove abandoned signups.
func (dbService *IdentityDBService) FindUnverifiedUserIDs(tenantID string, createdBefore int64) ([]string, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"accountLocked":        true,
		"timestamps.createdAt": bson.M{"$lt": createdBefore},
	}
	cursor, err := dbService.collectionUsers(tenantID).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	userIDs := []string{}
	for cursor.Next(ctx) {
		var user idTypes.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, user.UserID)
	}
	return userIDs, cursor.Err()
}

func (dbService *IdentityDBService) DeleteUser(tenantID string, userID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID}
	res, err := dbService.collectionUsers(tenantID).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("user not found")
	}
	return nil
}
