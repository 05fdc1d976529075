package types

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RECOVERY_DEVICE_TYPE_MAIL  = "mail"
	RECOVERY_DEVICE_TYPE_PHONE = "phone"
)

type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"dbId"`

	// UserID is the fixed-width identifier used inside bearer tokens. It is generated
	// once at signup and never changes.
	UserID string `bson:"userID" json:"id"`

	Roles         []string `bson:"roles" json:"roles"`
	AccountLocked bool     `bson:"accountLocked" json:"accountLocked"`

	Profile         Profile          `bson:"profile" json:"profile"`
	Preferences     Preferences      `bson:"preferences" json:"preferences"`
	RecoveryDevices []RecoveryDevice `bson:"recoveryDevices" json:"recoveryDevices"`

	Timestamps Timestamps `bson:"timestamps" json:"timestamps"`
}

type Profile struct {
	DisplayName string `bson:"displayName" json:"displayName"`
	FirstName   string `bson:"firstName" json:"firstName"`
	LastName    string `bson:"lastName" json:"lastName"`
}

type Preferences struct {
	Locale string `bson:"locale" json:"locale"`
}

type Timestamps struct {
	CreatedAt  int64 `bson:"createdAt" json:"createdAt"`
	UpdatedAt  int64 `bson:"updatedAt" json:"updatedAt"`
	LastLogin  int64 `bson:"lastLogin" json:"lastLogin"`
	UnlockedAt int64 `bson:"unlockedAt" json:"unlockedAt"`
}

// RecoveryDevice is a mail address or mobile phone number belonging to the user.
// Once verified it can receive reset tokens and, if primary, unlocks the account.
type RecoveryDevice struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type    string             `bson:"type" json:"type"`
	Address string             `bson:"address" json:"address"`
	Primary bool               `bson:"primary" json:"primary"`

	VerifiedAt int64 `bson:"verifiedAt" json:"verifiedAt"`

	// pending verification token, stored hashed, single use
	VerifyTokenHash      string `bson:"verifyTokenHash" json:"-"`
	VerifyTokenExpiresAt int64  `bson:"verifyTokenExpiresAt" json:"-"`
}

func (d RecoveryDevice) Verified() bool {
	return d.VerifiedAt > 0
}

// AddRecoveryDevice appends a new unverified device.
func (u *User) AddRecoveryDevice(deviceType string, address string, primary bool) RecoveryDevice {
	device := RecoveryDevice{
		ID:      primitive.NewObjectID(),
		Type:    deviceType,
		Address: address,
		Primary: primary,
	}
	u.RecoveryDevices = append(u.RecoveryDevices, device)
	return device
}

func (u User) FindRecoveryDevice(id string) (RecoveryDevice, bool) {
	for _, device := range u.RecoveryDevices {
		if device.ID.Hex() == id {
			return device, true
		}
	}
	return RecoveryDevice{}, false
}

func (u User) FindRecoveryDeviceByTypeAndAddr(deviceType string, address string) (RecoveryDevice, bool) {
	for _, device := range u.RecoveryDevices {
		if device.Type == deviceType && device.Address == address {
			return device, true
		}
	}
	return RecoveryDevice{}, false
}

// PrimaryDevice returns the primary device of the given type.
func (u User) PrimaryDevice(deviceType string) (RecoveryDevice, bool) {
	for _, device := range u.RecoveryDevices {
		if device.Type == deviceType && device.Primary {
			return device, true
		}
	}
	return RecoveryDevice{}, false
}

// ConfirmRecoveryDevice marks the device verified, clears the pending verify token and
// unlocks the account if the device is the primary one.
func (u *User) ConfirmRecoveryDevice(id string) error {
	for i, device := range u.RecoveryDevices {
		if device.ID.Hex() == id {
			u.RecoveryDevices[i].VerifiedAt = time.Now().Unix()
			u.RecoveryDevices[i].VerifyTokenHash = ""
			u.RecoveryDevices[i].VerifyTokenExpiresAt = 0
			if device.Primary && u.AccountLocked {
				u.AccountLocked = false
				u.Timestamps.UnlockedAt = time.Now().Unix()
			}
			return nil
		}
	}
	return errors.New("recovery device not found")
}

// SetDeviceVerifyToken stores the hashed verification token, replacing any pending one.
func (u *User) SetDeviceVerifyToken(id string, tokenHash string, expiresAt int64) error {
	for i, device := range u.RecoveryDevices {
		if device.ID.Hex() == id {
			u.RecoveryDevices[i].VerifyTokenHash = tokenHash
			u.RecoveryDevices[i].VerifyTokenExpiresAt = expiresAt
			return nil
		}
	}
	return errors.New("recovery device not found")
}

// RemoveRecoveryDevice deletes the device unless it is the primary one.
func (u *User) RemoveRecoveryDevice(id string) error {
	for i, device := range u.RecoveryDevices {
		if device.ID.Hex() == id {
			if device.Primary {
				return errors.New("cannot remove primary device")
			}
			u.RecoveryDevices = append(u.RecoveryDevices[:i], u.RecoveryDevices[i+1:]...)
			return nil
		}
	}
	return errors.New("recovery device not found")
}

func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
