package accounts

import (
	"log/slog"
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

// Registry owns the user lifecycle: signup, recovery device verification and account
// removal.
type Registry struct {
	identityDBService *identityDB.IdentityDBService
	credentialStore   *credentials.Store
	verifyTokenTTL    time.Duration
}

func NewRegistry(
	identityDBService *identityDB.IdentityDBService,
	credentialStore *credentials.Store,
	verifyTokenTTL time.Duration,
) *Registry {
	return &Registry{
		identityDBService: identityDBService,
		credentialStore:   credentialStore,
		verifyTokenTTL:    verifyTokenTTL,
	}
}

// Signup creates a locked user with an unverified primary mail device and a password
// credential, then sends the verification token. The account stays locked until the
// primary device is confirmed.
func (r *Registry) Signup(
	tenantID string,
	mailAddress string,
	password string,
	profile idTypes.Profile,
	locale string,
) (idTypes.User, error) {
	if _, err := r.identityDBService.GetUserByDeviceAddress(tenantID, idTypes.RECOVERY_DEVICE_TYPE_MAIL, mailAddress); err == nil {
		return idTypes.User{}, &apperrors.AlreadyExistsError{ResourceType: "user", Constraint: "mail address"}
	}

	userID, err := secrets.GenerateID()
	if err != nil {
		return idTypes.User{}, err
	}

	now := time.Now().Unix()
	user := idTypes.User{
		UserID:        userID,
		AccountLocked: true,
		Profile:       profile,
		Preferences:   idTypes.Preferences{Locale: locale},
		Timestamps: idTypes.Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	device := user.AddRecoveryDevice(idTypes.RECOVERY_DEVICE_TYPE_MAIL, mailAddress, true)

	user, err = r.identityDBService.CreateUser(tenantID, user)
	if err != nil {
		return idTypes.User{}, err
	}

	if _, err := r.credentialStore.CreateSingletonCredential(tenantID, userID, idTypes.CREDENTIAL_TYPE_PASSWORD, password, userID); err != nil {
		return idTypes.User{}, err
	}

	if err := r.TriggerDeviceVerification(tenantID, userID, device.ID.Hex()); err != nil {
		slog.Error("failed to trigger device verification", slog.String("userID", userID), slog.String("error", err.Error()))
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_USER, userID, events.EVENT_TYPE_CREATED, userID)
	return user, nil
}

// TriggerDeviceVerification issues a fresh verification token for a device, stores
// only its hash and sends the raw token to the device address. A pending token is
// replaced.
func (r *Registry) TriggerDeviceVerification(tenantID string, userID string, deviceID string) error {
	user, err := r.identityDBService.GetUser(tenantID, userID)
	if err != nil {
		return &apperrors.NotFoundError{ResourceType: "user", ID: userID}
	}

	device, ok := user.FindRecoveryDevice(deviceID)
	if !ok {
		return &apperrors.NotFoundError{ResourceType: "recovery device", ID: deviceID}
	}
	if device.Verified() {
		return &apperrors.PreconditionFailedError{Reason: "device already verified"}
	}

	token, err := secrets.GenerateOpaqueToken()
	if err != nil {
		return err
	}
	tokenHash, err := pwhash.HashSecret(token)
	if err != nil {
		return err
	}

	if err := user.SetDeviceVerifyToken(deviceID, tokenHash, time.Now().Add(r.verifyTokenTTL).Unix()); err != nil {
		return &apperrors.NotFoundError{ResourceType: "recovery device", ID: deviceID}
	}
	if _, err := r.identityDBService.ReplaceUser(tenantID, user); err != nil {
		return err
	}

	go r.sendVerificationNotification(tenantID, user, device, token)
	return nil
}

func (r *Registry) sendVerificationNotification(
	tenantID string,
	user idTypes.User,
	device idTypes.RecoveryDevice,
	token string,
) {
	channel := mTypes.CHANNEL_MAIL
	if device.Type == idTypes.RECOVERY_DEVICE_TYPE_PHONE {
		channel = mTypes.CHANNEL_SMS
	}

	payload := map[string]string{
		"token":      token,
		"validUntil": time.Now().Add(r.verifyTokenTTL).Format(time.RFC1123),
	}

	err := messaging.PostNotification(
		tenantID,
		mTypes.NOTIFICATION_TYPE_DEVICE_VERIFICATION,
		payload,
		channel,
		device.Address,
		user.UserID,
		user.Preferences.Locale,
	)
	if err != nil {
		slog.Error("failed to send verification notification", slog.String("userID", user.UserID), slog.String("error", err.Error()))
	}
}

// ConfirmDevice validates a verification token and marks the device verified.
// Confirming the primary device unlocks the account.
func (r *Registry) ConfirmDevice(tenantID string, userID string, deviceID string, token string) (idTypes.User, error) {
	user, err := r.identityDBService.GetUser(tenantID, userID)
	if err != nil {
		return idTypes.User{}, &apperrors.InvalidResetTokenError{}
	}

	device, ok := user.FindRecoveryDevice(deviceID)
	if !ok {
		return idTypes.User{}, &apperrors.InvalidResetTokenError{}
	}

	if err := CheckVerifyToken(device, token, time.Now()); err != nil {
		return idTypes.User{}, err
	}

	wasLocked := user.AccountLocked
	if err := user.ConfirmRecoveryDevice(deviceID); err != nil {
		return idTypes.User{}, &apperrors.InvalidResetTokenError{}
	}
	user, err = r.identityDBService.ReplaceUser(tenantID, user)
	if err != nil {
		return idTypes.User{}, err
	}

	if wasLocked && !user.AccountLocked {
		go r.sendWelcomeNotification(tenantID, user, device)
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_USER, userID, events.EVENT_TYPE_UPDATED, userID)
	return user, nil
}

func (r *Registry) sendWelcomeNotification(tenantID string, user idTypes.User, device idTypes.RecoveryDevice) {
	if device.Type != idTypes.RECOVERY_DEVICE_TYPE_MAIL {
		return
	}
	payload := map[string]string{
		"displayName": user.Profile.DisplayName,
	}
	err := messaging.PostNotification(
		tenantID,
		mTypes.NOTIFICATION_TYPE_WELCOME,
		payload,
		mTypes.CHANNEL_MAIL,
		device.Address,
		user.UserID,
		user.Preferences.Locale,
	)
	if err != nil {
		slog.Error("failed to send welcome notification", slog.String("userID", user.UserID), slog.String("error", err.Error()))
	}
}

// CheckVerifyToken validates a candidate verification token of a device. Expiry wins
// over a matching hash.
func CheckVerifyToken(device idTypes.RecoveryDevice, token string, now time.Time) error {
	if device.Verified() || device.VerifyTokenHash == "" {
		return &apperrors.InvalidResetTokenError{}
	}
	if device.VerifyTokenExpiresAt > 0 && now.Unix() > device.VerifyTokenExpiresAt {
		return &apperrors.ResetTokenExpiredError{}
	}
	match, err := pwhash.CompareSecretWithHash(device.VerifyTokenHash, token)
	if err != nil || !match {
		return &apperrors.InvalidResetTokenError{}
	}
	return nil
}

// AddDevice attaches a new unverified device to the user and triggers its
// verification.
func (r *Registry) AddDevice(tenantID string, userID string, deviceType string, address string) (idTypes.RecoveryDevice, error) {
	user, err := r.identityDBService.GetUser(tenantID, userID)
	if err != nil {
		return idTypes.RecoveryDevice{}, &apperrors.NotFoundError{ResourceType: "user", ID: userID}
	}
	if _, exists := user.FindRecoveryDeviceByTypeAndAddr(deviceType, address); exists {
		return idTypes.RecoveryDevice{}, &apperrors.AlreadyExistsError{ResourceType: "recovery device", Constraint: "address"}
	}

	device := user.AddRecoveryDevice(deviceType, address, false)
	if _, err := r.identityDBService.ReplaceUser(tenantID, user); err != nil {
		return idTypes.RecoveryDevice{}, err
	}

	if err := r.TriggerDeviceVerification(tenantID, userID, device.ID.Hex()); err != nil {
		slog.Error("failed to trigger device verification", slog.String("userID", userID), slog.String("error", err.Error()))
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_USER, userID, events.EVENT_TYPE_UPDATED, userID)
	return device, nil
}

// RemoveDevice detaches a non primary device from the user.
func (r *Registry) RemoveDevice(tenantID string, userID string, deviceID string) error {
	user, err := r.identityDBService.GetUser(tenantID, userID)
	if err != nil {
		return &apperrors.NotFoundError{ResourceType: "user", ID: userID}
	}
	if err := user.RemoveRecoveryDevice(deviceID); err != nil {
		return &apperrors.PreconditionFailedError{Reason: err.Error()}
	}
	if _, err := r.identityDBService.ReplaceUser(tenantID, user); err != nil {
		return err
	}
	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_USER, userID, events.EVENT_TYPE_UPDATED, userID)
	return nil
}

// DeleteAccount removes the user together with all credentials and sessions.
func (r *Registry) DeleteAccount(tenantID string, userID string, actor string) error {
	if _, err := r.identityDBService.GetUser(tenantID, userID); err != nil {
		return &apperrors.NotFoundError{ResourceType: "user", ID: userID}
	}

	if _, err := r.identityDBService.DeleteCredentialsByUserID(tenantID, userID); err != nil {
		return err
	}
	if _, err := r.identityDBService.DeleteSessionsByUserID(tenantID, userID); err != nil {
		return err
	}
	if err := r.identityDBService.DeleteUser(tenantID, userID); err != nil {
		return err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_USER, userID, events.EVENT_TYPE_DELETED, actor)
	return nil
}
