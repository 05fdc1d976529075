package recovery

import (
	"log/slog"
	"sort"
	"time"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"

	"github.com/julb/iam-backend/pkg/apperrors"
	"github.com/julb/iam-backend/pkg/events"
	"github.com/julb/iam-backend/pkg/identity/credentials"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	"github.com/julb/iam-backend/pkg/identity/secrets"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
	"github.com/julb/iam-backend/pkg/messaging"
	mTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

// TenantConfig controls which channels a tenant allows for reset delivery and how
// long an issued reset token stays valid.
type TenantConfig struct {
	EnabledChannels []string
	ResetTokenTTL   time.Duration
}

type Flow struct {
	identityDBService *identityDB.IdentityDBService
	credentialStore   *credentials.Store
	tenantConfig      func(tenantID string) TenantConfig
}

func NewFlow(
	identityDBService *identityDB.IdentityDBService,
	credentialStore *credentials.Store,
	tenantConfig func(tenantID string) TenantConfig,
) *Flow {
	return &Flow{
		identityDBService: identityDBService,
		credentialStore:   credentialStore,
		tenantConfig:      tenantConfig,
	}
}

// Channel is a verified recovery device presented with its address masked.
type Channel struct {
	DeviceID      string `json:"deviceID"`
	Type          string `json:"type"`
	MaskedAddress string `json:"maskedAddress"`
}

// ListChannels returns the verified devices of the user that belong to a channel the
// tenant allows, addresses masked, mail devices first.
func (f *Flow) ListChannels(tenantID string, userID string) ([]Channel, error) {
	user, err := f.identityDBService.GetUser(tenantID, userID)
	if err != nil {
		return nil, &apperrors.NotFoundError{ResourceType: "user", ID: userID}
	}
	cfg := f.tenantConfig(tenantID)
	return ChannelsForUser(user, cfg.EnabledChannels), nil
}

// ChannelsForUser filters and masks the devices of a user. Only verified devices on
// an enabled channel qualify.
func ChannelsForUser(user idTypes.User, enabledChannels []string) []Channel {
	channels := []Channel{}
	for _, device := range user.RecoveryDevices {
		if !device.Verified() {
			continue
		}
		if !channelEnabled(enabledChannels, device.Type) {
			continue
		}
		channels = append(channels, Channel{
			DeviceID:      device.ID.Hex(),
			Type:          device.Type,
			MaskedAddress: MaskAddress(device.Type, device.Address),
		})
	}
	sort.SliceStable(channels, func(i, j int) bool {
		return channelRank(channels[i].Type) < channelRank(channels[j].Type)
	})
	return channels
}

func channelEnabled(enabledChannels []string, deviceType string) bool {
	for _, c := range enabledChannels {
		if c == deviceType {
			return true
		}
	}
	return false
}

func channelRank(deviceType string) int {
	if deviceType == idTypes.RECOVERY_DEVICE_TYPE_MAIL {
		return 0
	}
	return 1
}

// TriggerReset issues a fresh reset token for the given credential, stores only its
// hash and sends the raw token to the selected device. A pending token is replaced.
func (f *Flow) TriggerReset(
	tenantID string,
	userID string,
	deviceID string,
	credentialType idTypes.CredentialType,
	actor string,
) error {
	user, err := f.identityDBService.GetUser(tenantID, userID)
	if err != nil {
		return &apperrors.NotFoundError{ResourceType: "user", ID: userID}
	}

	device, ok := user.FindRecoveryDevice(deviceID)
	if !ok || !device.Verified() {
		return &apperrors.NotFoundError{ResourceType: "recovery device", ID: deviceID}
	}
	cfg := f.tenantConfig(tenantID)
	if !channelEnabled(cfg.EnabledChannels, device.Type) {
		return &apperrors.NotFoundError{ResourceType: "recovery device", ID: deviceID}
	}

	credential, err := f.identityDBService.GetCredentialByType(tenantID, userID, credentialType)
	if err != nil {
		return &apperrors.NotFoundError{ResourceType: string(credentialType), ID: userID}
	}

	token, err := secrets.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	tokenHash, err := pwhash.HashSecret(token)
	if err != nil {
		return err
	}

	credential.SetResetToken(tokenHash, time.Now().Add(cfg.ResetTokenTTL).Unix())
	if _, err := f.identityDBService.ReplaceCredential(tenantID, credential); err != nil {
		return err
	}

	go f.sendResetNotification(tenantID, user, device, credentialType, token, cfg.ResetTokenTTL)

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credential.CredentialID, events.EVENT_TYPE_UPDATED, actor)
	return nil
}

func (f *Flow) sendResetNotification(
	tenantID string,
	user idTypes.User,
	device idTypes.RecoveryDevice,
	credentialType idTypes.CredentialType,
	token string,
	ttl time.Duration,
) {
	channel := mTypes.CHANNEL_MAIL
	if device.Type == idTypes.RECOVERY_DEVICE_TYPE_PHONE {
		channel = mTypes.CHANNEL_SMS
	}

	payload := map[string]string{
		"token":          token,
		"credentialType": string(credentialType),
		"validUntil":     time.Now().Add(ttl).Format(time.RFC1123),
	}

	err := messaging.PostNotification(
		tenantID,
		mTypes.NOTIFICATION_TYPE_CREDENTIAL_RESET,
		payload,
		channel,
		device.Address,
		user.UserID,
		user.Preferences.Locale,
	)
	if err != nil {
		slog.Error("failed to send reset notification", slog.String("userID", user.UserID), slog.String("error", err.Error()))
	}
}

// ConsumeReset validates a reset token and, on success, rotates in the new secret.
// The stored token hash is cleared by the rotation whether or not it had expired by
// then, so a token can never be replayed.
func (f *Flow) ConsumeReset(
	tenantID string,
	userID string,
	credentialType idTypes.CredentialType,
	token string,
	newSecret string,
	actor string,
) error {
	credential, err := f.identityDBService.GetCredentialByType(tenantID, userID, credentialType)
	if err != nil {
		return &apperrors.InvalidResetTokenError{}
	}

	if err := CheckResetToken(credential, token, time.Now()); err != nil {
		return err
	}

	_, err = f.credentialStore.ApplyRotatedSecret(tenantID, credential, newSecret, actor)
	return err
}

// CheckResetToken validates a candidate token against the pending one. Expiry wins
// over a matching hash.
func CheckResetToken(credential idTypes.Credential, token string, now time.Time) error {
	if !credential.HasPendingResetToken() {
		return &apperrors.InvalidResetTokenError{}
	}
	if credential.ResetTokenExpired(now) {
		return &apperrors.ResetTokenExpiredError{}
	}
	match, err := pwhash.CompareSecretWithHash(credential.ResetTokenHash, token)
	if err != nil || !match {
		return &apperrors.InvalidResetTokenError{}
	}
	return nil
}
