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

const (
	// expired sessions are kept briefly so revocation and cleanup stay observable
	SESSION_GRACE_PERIOD = 60 * 60 // seconds
)

func (dbService *IdentityDBService) CreateIndexesForSessions(tenantID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	_, err := dbService.collectionSessions(tenantID).Indexes().CreateMany(
		ctx, []mongo.IndexModel{
			{
				Keys: bson.D{
					{Key: "sessionID", Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{
					{Key: "userID", Value: 1},
				},
			},
			{
				Keys: bson.D{
					{Key: "expiresAt", Value: 1},
				},
				Options: options.Index().SetExpireAfterSeconds(SESSION_GRACE_PERIOD),
			},
		},
	)
	return err
}

func (dbService *IdentityDBService) CreateSession(tenantID string, session idTypes.Session) (idTypes.Session, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	session.CreatedAt = time.Now()
	res, err := dbService.collectionSessions(tenantID).InsertOne(ctx, session)
	if err != nil {
		return session, err
	}
	session.ID = res.InsertedID.(primitive.ObjectID)
	return session, nil
}

func (dbService *IdentityDBService) GetSession(tenantID string, sessionID string) (idTypes.Session, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"sessionID": sessionID}
	var session idTypes.Session
	err := dbService.collectionSessions(tenantID).FindOne(ctx, filter).Decode(&session)
	return session, err
}

// MarkSessionMfaVerified flips the MFA flag of the session. There is no operation that
// flips it back.
func (dbService *IdentityDBService) MarkSessionMfaVerified(tenantID string, userID string, sessionID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "sessionID": sessionID}
	update := bson.M{"$set": bson.M{"mfaVerified": true}}
	res, err := dbService.collectionSessions(tenantID).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errors.New("session not found")
	}
	return nil
}

func (dbService *IdentityDBService) UpdateSessionLastUsed(tenantID string, sessionID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"sessionID": sessionID}
	update := bson.M{"$set": bson.M{"lastUsedAt": time.Now().Unix()}}
	_, err := dbService.collectionSessions(tenantID).UpdateOne(ctx, filter, update)
	return err
}

func (dbService *IdentityDBService) DeleteSession(tenantID string, userID string, sessionID string) error {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"userID": userID, "sessionID": sessionID}
	res, err := dbService.collectionSessions(tenantID).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("session not found")
	}
	return nil
}

func (dbService *IdentityDBService) DeleteSessionsByUserID(tenantID string, userID string) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	res, err := dbService.collectionSessions(tenantID).DeleteMany(ctx, bson.M{"userID": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteExpiredSessions removes sessions past their expiry. The TTL index covers this
// eventually; the cleanup job calls this for deterministic housekeeping.
func (dbService *IdentityDBService) DeleteExpiredSessions(tenantID string, before time.Time) (int64, error) {
	ctx, cancel := dbService.getContext()
	defer cancel()

	filter := bson.M{"expiresAt": bson.M{"$lt": before}}
	res, err := dbService.collectionSessions(tenantID).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
