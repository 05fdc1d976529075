package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CredentialType string

const (
	CREDENTIAL_TYPE_PASSWORD CredentialType = "password"
	CREDENTIAL_TYPE_PINCODE  CredentialType = "pincode"
	CREDENTIAL_TYPE_TOTP     CredentialType = "totp"
	CREDENTIAL_TYPE_API_KEY  CredentialType = "api-key"
)

// SECRET_HISTORY_LIMIT caps the number of retained previous secret hashes.
const SECRET_HISTORY_LIMIT = 5

type Credential struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"dbId"`

	// CredentialID is the fixed-width identifier embedded into composite bearer
	// tokens for API keys.
	CredentialID string `bson:"credentialID" json:"id"`

	UserID string         `bson:"userID" json:"userID"`
	Type   CredentialType `bson:"type" json:"type"`

	// Name labels TOTP devices and API keys; empty for password and pincode.
	Name string `bson:"name,omitempty" json:"name,omitempty"`

	SecretHash    string   `bson:"secretHash" json:"-"`
	SecretHistory []string `bson:"secretHistory" json:"-"`

	// pending reset token, stored hashed, single use
	ResetTokenHash      string `bson:"resetTokenHash" json:"-"`
	ResetTokenExpiresAt int64  `bson:"resetTokenExpiresAt" json:"-"`

	FailedAttempts int   `bson:"failedAttempts" json:"failedAttempts"`
	LastUsedAt     int64 `bson:"lastUsedAt" json:"lastUsedAt"`

	// MfaEnabled applies to password and pincode credentials only.
	MfaEnabled bool `bson:"mfaEnabled" json:"mfaEnabled"`

	// TotpSecret is the raw shared secret of a TOTP device. It is needed to compute
	// codes and is never re-exposed through the API after creation.
	TotpSecret string `bson:"totpSecret,omitempty" json:"-"`

	CreatedAt int64 `bson:"createdAt" json:"createdAt"`
	UpdatedAt int64 `bson:"updatedAt" json:"updatedAt"`
}

// RotateSecretHash replaces the stored hash, pushing the previous one onto the history
// (FIFO, capped), resetting the failed attempt counter and clearing any pending reset
// token.
func (c *Credential) RotateSecretHash(newHash string) {
	if c.SecretHash != "" {
		c.SecretHistory = append(c.SecretHistory, c.SecretHash)
		if len(c.SecretHistory) > SECRET_HISTORY_LIMIT {
			c.SecretHistory = c.SecretHistory[len(c.SecretHistory)-SECRET_HISTORY_LIMIT:]
		}
	}
	c.SecretHash = newHash
	c.FailedAttempts = 0
	c.ResetTokenHash = ""
	c.ResetTokenExpiresAt = 0
	c.UpdatedAt = time.Now().Unix()
}

// SetResetToken stores the hashed reset token, replacing any pending one.
func (c *Credential) SetResetToken(tokenHash string, expiresAt int64) {
	c.ResetTokenHash = tokenHash
	c.ResetTokenExpiresAt = expiresAt
	c.UpdatedAt = time.Now().Unix()
}

func (c Credential) HasPendingResetToken() bool {
	return c.ResetTokenHash != ""
}

func (c Credential) ResetTokenExpired(now time.Time) bool {
	return c.ResetTokenExpiresAt > 0 && now.Unix() > c.ResetTokenExpiresAt
}

func (c Credential) SupportsMfa() bool {
	return c.Type == CREDENTIAL_TYPE_PASSWORD || c.Type == CREDENTIAL_TYPE_PINCODE
}
