package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is the unit from which access tokens are minted. The raw ID-token is only
// handed out once at creation; the stored form is a one-way hash of it.
type Session struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"dbId"`

	// SessionID is the fixed-width identifier embedded into the ID-token.
	SessionID string `bson:"sessionID" json:"id"`

	UserID string `bson:"userID" json:"userID"`

	IDTokenHash string    `bson:"idTokenHash" json:"-"`
	ExpiresAt   time.Time `bson:"expiresAt" json:"expiresAt"`

	MfaVerified bool `bson:"mfaVerified" json:"mfaVerified"`

	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	LastUsedAt int64     `bson:"lastUsedAt" json:"lastUsedAt"`
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
