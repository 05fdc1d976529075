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

func (dbService *IdentityDBService) CreateIndexesForCredentials(tenantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionCredentials(tenantID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "credentialID", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "userID", Value: 1},
					{Key: "type", Value: 1},
				},
			},
		},
	)
	return err
}

func (dbService *IdentityDBService) CreateCredential(tenantID string, credential idTypes.Credential) (idTypes.Credential, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	credential.CreatedAt = time.Now().Unix()
	credential.UpdatedAt = credential.CreatedAt
	res, err := dbService.collectionCredentials(tenantID).InsertOne(ctx, credential)
	if err != nil {
		return credential, err
	}
	credential.ID = res.InsertedID.(primitive.ObjectID)
	return credential, nil
}

func (dbService *IdentityDBService) GetCredential(tenantID string, userID string, credentialID string) (idTypes.Credential, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "credentialID": credentialID}
	var credential idTypes.Credential
	err := dbService.collectionCredentials(tenantID).FindOne(ctx, filter).Decode(&credential)
	return credential, err
}

// GetCredentialByType returns the type-unique credential (password or pincode) of a user.
func (dbService *IdentityDBService) GetCredentialByType(tenantID string, userID string, credentialType idTypes.CredentialType) (idTypes.Credential, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "type": credentialType}
	var credential idTypes.Credential
	err := dbService.collectionCredentials(tenantID).FindOne(ctx, filter).Decode(&credential)
	return credential, err
}

func (dbService *IdentityDBService) FindCredentialsByUserAndType(tenantID string, userID string, credentialType idTypes.CredentialType) ([]idTypes.Credential, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "type": credentialType}
	cursor, err := dbService.collectionCredentials(tenantID).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	credentials := []idTypes.Credential{}
	if err := cursor.All(ctx, &credentials); err != nil {
		return nil, err
	}
	return credentials, nil
}

func (dbService *IdentityDBService) CountCredentialsByUserAndType(tenantID string, userID string, credentialType idTypes.CredentialType) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "type": credentialType}
	return dbService.collectionCredentials(tenantID).CountDocuments(ctx, filter)
}

func (dbService *IdentityDBService) ReplaceCredential(tenantID string, credential idTypes.Credential) (idTypes.Credential, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	credential.UpdatedAt = time.Now().Unix()
	filter := bson.M{"credentialID": credential.CredentialID}
	res, err := dbService.collectionCredentials(tenantID).ReplaceOne(ctx, filter, credential)
	if err != nil {
		return credential, err
	}
	if res.MatchedCount == 0 {
		return credential, errors.New("credential not found")
	}
	return credential, nil
}

func (dbService *IdentityDBService) DeleteCredential(tenantID string, userID string, credentialID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "credentialID": credentialID}
	res, err := dbService.collectionCredentials(tenantID).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("credential not found")
	}
	return nil
}

func (dbService *IdentityDBService) DeleteCredentialsByUserID(tenantID string, userID string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionCredentials(tenantID).DeleteMany(ctx, bson.M{"userID": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MarkCredentialUsed updates the last successful use timestamp and resets the failed
// attempt counter.
func (dbService *IdentityDBService) MarkCredentialUsed(tenantID string, userID string, credentialID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "credentialID": credentialID}
	update := bson.M{"$set": bson.M{
		"lastUsedAt":     time.Now().Unix(),
		"failedAttempts": 0,
		"updatedAt":      time.Now().Unix(),
	}}
	res, err := dbService.collectionCredentials(tenantID).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("credential not found")
	}
	return nil
}

func (dbService *IdentityDBService) SaveFailedAttempt(tenantID string, userID string, credentialID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "credentialID": credentialID}
	update := bson.M{"$inc": bson.M{"failedAttempts": 1}}
	_, err := dbService.collectionCredentials(tenantID).UpdateMany(ctx, filter, update)
	return err
}

// ClearExpiredResetTokens removes pending reset tokens whose expiry is in the past.
// Used by the cleanup job.
func (dbService *IdentityDBService) ClearExpiredResetTokens(tenantID string, before int64) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{
		"resetTokenExpiresAt": bson.M{"$gt": 0, "$lt": before},
	}
	update := bson.M{"$set": bson.M{
		"resetTokenHash":      "",
		"resetTokenExpiresAt": 0,
	}}
	res, err := dbService.collectionCredentials(tenantID).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
