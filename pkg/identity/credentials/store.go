package credentials

import (
	"log/slog"
	"strings"
	"time"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"

	"github.com/julb/iam-backend/pkg/apperrors"
	"github.com/julb/iam-backend/pkg/events"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	"github.com/julb/iam-backend/pkg/identity/secrets"
	"github.com/julb/iam-backend/pkg/identity/totp"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

const (
	// accepted TOTP drift around the current time step
	DEFAULT_TOTP_WINDOW_STEPS = 1
)

type Store struct {
	identityDBService *identityDB.IdentityDBService
	totpIssuer        string
	totpWindowSteps   int
}

func NewStore(
	identityDBService *identityDB.IdentityDBService,
	totpIssuer string,
	totpWindowSteps int,
) *Store {
	if totpWindowSteps < 1 {
		totpWindowSteps = DEFAULT_TOTP_WINDOW_STEPS
	}
	return &Store{
		identityDBService: identityDBService,
		totpIssuer:        totpIssuer,
		totpWindowSteps:   totpWindowSteps,
	}
}

// CreateSingletonCredential creates the password or pincode credential of a user and
// rotates in the initial secret. At most one credential of each of these types may
// exist per user.
func (s *Store) CreateSingletonCredential(
	tenantID string,
	userID string,
	credentialType idTypes.CredentialType,
	initialSecret string,
	actor string,
) (idTypes.Credential, error) {
	if credentialType != idTypes.CREDENTIAL_TYPE_PASSWORD && credentialType != idTypes.CREDENTIAL_TYPE_PINCODE {
		return idTypes.Credential{}, &apperrors.PreconditionFailedError{Reason: "credential type is not singleton"}
	}

	count, err := s.identityDBService.CountCredentialsByUserAndType(tenantID, userID, credentialType)
	if err != nil {
		return idTypes.Credential{}, err
	}
	if count > 0 {
		return idTypes.Credential{}, &apperrors.AlreadyExistsError{ResourceType: string(credentialType), Constraint: "one per user"}
	}

	credentialID, err := secrets.GenerateID()
	if err != nil {
		return idTypes.Credential{}, err
	}

	credential := idTypes.Credential{
		CredentialID: credentialID,
		UserID:       userID,
		Type:         credentialType,
	}

	secretHash, err := pwhash.HashSecret(initialSecret)
	if err != nil {
		return idTypes.Credential{}, err
	}
	credential.RotateSecretHash(secretHash)

	credential, err = s.identityDBService.CreateCredential(tenantID, credential)
	if err != nil {
		return idTypes.Credential{}, err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credential.CredentialID, events.EVENT_TYPE_CREATED, actor)
	return credential, nil
}

// TotpDeviceCreation is returned exactly once at device registration; the raw secret
// and provisioning URI are not retrievable afterwards.
type TotpDeviceCreation struct {
	Credential      idTypes.Credential
	RawSecret       string
	ProvisioningURI string
}

func (s *Store) CreateTotpDevice(
	tenantID string,
	userID string,
	name string,
	accountLabel string,
	actor string,
) (TotpDeviceCreation, error) {
	existing, err := s.identityDBService.FindCredentialsByUserAndType(tenantID, userID, idTypes.CREDENTIAL_TYPE_TOTP)
	if err != nil {
		return TotpDeviceCreation{}, err
	}
	if NameTaken(existing, name) {
		return TotpDeviceCreation{}, &apperrors.AlreadyExistsError{ResourceType: string(idTypes.CREDENTIAL_TYPE_TOTP), Constraint: "name unique per user"}
	}

	credentialID, err := secrets.GenerateID()
	if err != nil {
		return TotpDeviceCreation{}, err
	}

	rawSecret, err := totp.GenerateSecret()
	if err != nil {
		return TotpDeviceCreation{}, err
	}

	uri, err := totp.ProvisioningURI(accountLabel, s.totpIssuer, rawSecret)
	if err != nil {
		return TotpDeviceCreation{}, err
	}

	credential := idTypes.Credential{
		CredentialID: credentialID,
		UserID:       userID,
		Type:         idTypes.CREDENTIAL_TYPE_TOTP,
		Name:         name,
		TotpSecret:   rawSecret,
	}

	credential, err = s.identityDBService.CreateCredential(tenantID, credential)
	if err != nil {
		return TotpDeviceCreation{}, err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credential.CredentialID, events.EVENT_TYPE_CREATED, actor)
	return TotpDeviceCreation{
		Credential:      credential,
		RawSecret:       rawSecret,
		ProvisioningURI: uri,
	}, nil
}

// ApiKeyCreation carries the raw key, returned exactly once.
type ApiKeyCreation struct {
	Credential idTypes.Credential
	RawKey     string
}

func (s *Store) CreateApiKey(
	tenantID string,
	userID string,
	name string,
	actor string,
) (ApiKeyCreation, error) {
	existing, err := s.identityDBService.FindCredentialsByUserAndType(tenantID, userID, idTypes.CREDENTIAL_TYPE_API_KEY)
	if err != nil {
		return ApiKeyCreation{}, err
	}
	if NameTaken(existing, name) {
		return ApiKeyCreation{}, &apperrors.AlreadyExistsError{ResourceType: string(idTypes.CREDENTIAL_TYPE_API_KEY), Constraint: "name unique per user"}
	}

	credentialID, err := secrets.GenerateID()
	if err != nil {
		return ApiKeyCreation{}, err
	}

	rawKey, err := secrets.BuildCompositeToken(credentialID, userID)
	if err != nil {
		return ApiKeyCreation{}, err
	}

	keyHash, err := pwhash.HashSecret(rawKey)
	if err != nil {
		return ApiKeyCreation{}, err
	}

	credential := idTypes.Credential{
		CredentialID: credentialID,
		UserID:       userID,
		Type:         idTypes.CREDENTIAL_TYPE_API_KEY,
		Name:         name,
		SecretHash:   keyHash,
	}

	credential, err = s.identityDBService.CreateCredential(tenantID, credential)
	if err != nil {
		return ApiKeyCreation{}, err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credential.CredentialID, events.EVENT_TYPE_CREATED, actor)
	return ApiKeyCreation{
		Credential: credential,
		RawKey:     rawKey,
	}, nil
}

// RotateSecret performs a user initiated secret change: the current secret must match
// before the new one replaces it.
func (s *Store) RotateSecret(
	tenantID string,
	userID string,
	credentialType idTypes.CredentialType,
	currentSecret string,
	newSecret string,
	actor string,
) (idTypes.Credential, error) {
	credential, err := s.identityDBService.GetCredentialByType(tenantID, userID, credentialType)
	if err != nil {
		return idTypes.Credential{}, &apperrors.NotFoundError{ResourceType: string(credentialType), ID: userID}
	}

	match, err := pwhash.CompareSecretWithHash(credential.SecretHash, currentSecret)
	if err != nil || !match {
		if saveErr := s.identityDBService.SaveFailedAttempt(tenantID, userID, credential.CredentialID); saveErr != nil {
			slog.Error("failed to save failed attempt", slog.String("error", saveErr.Error()))
		}
		return idTypes.Credential{}, &apperrors.InvalidSecretError{}
	}

	return s.ApplyRotatedSecret(tenantID, credential, newSecret, actor)
}

// ApplyRotatedSecret stores a new secret without checking the old one. Used to
// complete a reset flow after the reset token was validated.
func (s *Store) ApplyRotatedSecret(
	tenantID string,
	credential idTypes.Credential,
	newSecret string,
	actor string,
) (idTypes.Credential, error) {
	newHash, err := pwhash.HashSecret(newSecret)
	if err != nil {
		return idTypes.Credential{}, err
	}

	credential.RotateSecretHash(newHash)
	credential, err = s.identityDBService.ReplaceCredential(tenantID, credential)
	if err != nil {
		return idTypes.Credential{}, err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credential.CredentialID, events.EVENT_TYPE_UPDATED, actor)
	return credential, nil
}

// VerifySingletonSecret checks a password or pincode against its stored hash and
// maintains the attempt counters.
func (s *Store) VerifySingletonSecret(
	tenantID string,
	userID string,
	credentialType idTypes.CredentialType,
	candidate string,
) (idTypes.Credential, error) {
	credential, err := s.identityDBService.GetCredentialByType(tenantID, userID, credentialType)
	if err != nil {
		return idTypes.Credential{}, &apperrors.InvalidSecretError{}
	}

	match, err := pwhash.CompareSecretWithHash(credential.SecretHash, candidate)
	if err != nil || !match {
		if saveErr := s.identityDBService.SaveFailedAttempt(tenantID, userID, credential.CredentialID); saveErr != nil {
			slog.Error("failed to save failed attempt", slog.String("error", saveErr.Error()))
		}
		return idTypes.Credential{}, &apperrors.InvalidSecretError{}
	}

	if err := s.RecordSuccessfulUse(tenantID, userID, credential.CredentialID); err != nil {
		slog.Error("failed to record credential use", slog.String("error", err.Error()))
	}
	return credential, nil
}

// VerifyTotpCode checks the submitted code against every TOTP device of the user. The
// acceptable codes of the validity window are hashed and the comparison goes through
// the same hash-compare primitive as any other secret.
func (s *Store) VerifyTotpCode(
	tenantID string,
	userID string,
	code string,
) (idTypes.Credential, error) {
	devices, err := s.identityDBService.FindCredentialsByUserAndType(tenantID, userID, idTypes.CREDENTIAL_TYPE_TOTP)
	if err != nil {
		return idTypes.Credential{}, &apperrors.InvalidSecretError{}
	}

	for _, device := range devices {
		validCodes, err := totp.ValidCodes(device.TotpSecret, s.totpWindowSteps)
		if err != nil {
			slog.Error("failed to compute totp codes", slog.String("credentialID", device.CredentialID), slog.String("error", err.Error()))
			continue
		}
		for _, validCode := range validCodes {
			codeHash, err := pwhash.HashSecret(validCode)
			if err != nil {
				return idTypes.Credential{}, err
			}
			match, err := pwhash.CompareSecretWithHash(codeHash, code)
			if err != nil {
				return idTypes.Credential{}, err
			}
			if match {
				if useErr := s.RecordSuccessfulUse(tenantID, userID, device.CredentialID); useErr != nil {
					slog.Error("failed to record credential use", slog.String("error", useErr.Error()))
				}
				return device, nil
			}
		}
	}
	return idTypes.Credential{}, &apperrors.InvalidSecretError{}
}

// VerifyApiKey decomposes the raw key, loads the credential and compares the key
// against the stored hash. Any failure looks the same to the caller.
func (s *Store) VerifyApiKey(tenantID string, rawKey string) (idTypes.Credential, error) {
	credentialID, userID, err := secrets.ParseCompositeToken(rawKey)
	if err != nil {
		return idTypes.Credential{}, &apperrors.UnauthorizedError{}
	}

	credential, err := s.identityDBService.GetCredential(tenantID, userID, credentialID)
	if err != nil || credential.Type != idTypes.CREDENTIAL_TYPE_API_KEY {
		return idTypes.Credential{}, &apperrors.UnauthorizedError{}
	}

	match, err := pwhash.CompareSecretWithHash(credential.SecretHash, rawKey)
	if err != nil || !match {
		return idTypes.Credential{}, &apperrors.UnauthorizedError{}
	}

	if useErr := s.RecordSuccessfulUse(tenantID, userID, credential.CredentialID); useErr != nil {
		slog.Error("failed to record credential use", slog.String("error", useErr.Error()))
	}
	return credential, nil
}

func (s *Store) RecordSuccessfulUse(tenantID string, userID string, credentialID string) error {
	return s.identityDBService.MarkCredentialUsed(tenantID, userID, credentialID)
}

// SetMfaEnabled flips the MFA gate on a password or pincode credential. Enabling
// requires at least one registered TOTP device.
func (s *Store) SetMfaEnabled(
	tenantID string,
	userID string,
	credentialType idTypes.CredentialType,
	enabled bool,
	actor string,
) (idTypes.Credential, error) {
	credential, err := s.identityDBService.GetCredentialByType(tenantID, userID, credentialType)
	if err != nil {
		return idTypes.Credential{}, &apperrors.NotFoundError{ResourceType: string(credentialType), ID: userID}
	}
	if !credential.SupportsMfa() {
		return idTypes.Credential{}, &apperrors.PreconditionFailedError{Reason: "credential type does not support MFA"}
	}

	if enabled {
		totpCount, err := s.identityDBService.CountCredentialsByUserAndType(tenantID, userID, idTypes.CREDENTIAL_TYPE_TOTP)
		if err != nil {
			return idTypes.Credential{}, err
		}
		if err := CheckMfaPrecondition(totpCount); err != nil {
			return idTypes.Credential{}, err
		}
	}

	credential.MfaEnabled = enabled
	credential, err = s.identityDBService.ReplaceCredential(tenantID, credential)
	if err != nil {
		return idTypes.Credential{}, err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credential.CredentialID, events.EVENT_TYPE_UPDATED, actor)
	return credential, nil
}

// Delete removes a credential. The last TOTP device of a user cannot be removed while
// an MFA enabled password or pincode still relies on it.
func (s *Store) Delete(
	tenantID string,
	userID string,
	credentialID string,
	actor string,
) error {
	credential, err := s.identityDBService.GetCredential(tenantID, userID, credentialID)
	if err != nil {
		return &apperrors.NotFoundError{ResourceType: "credential", ID: credentialID}
	}

	if credential.Type == idTypes.CREDENTIAL_TYPE_TOTP {
		totpCount, err := s.identityDBService.CountCredentialsByUserAndType(tenantID, userID, idTypes.CREDENTIAL_TYPE_TOTP)
		if err != nil {
			return err
		}

		mfaEnabledElsewhere := false
		for _, t := range []idTypes.CredentialType{idTypes.CREDENTIAL_TYPE_PASSWORD, idTypes.CREDENTIAL_TYPE_PINCODE} {
			singleton, err := s.identityDBService.GetCredentialByType(tenantID, userID, t)
			if err == nil && singleton.MfaEnabled {
				mfaEnabledElsewhere = true
				break
			}
		}

		if err := CheckTotpDeviceDeletable(totpCount, mfaEnabledElsewhere, credentialID); err != nil {
			return err
		}
	}

	if err := s.identityDBService.DeleteCredential(tenantID, userID, credentialID); err != nil {
		return err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_CREDENTIAL, credentialID, events.EVENT_TYPE_DELETED, actor)
	return nil
}

func (s *Store) GetCredential(tenantID string, userID string, credentialID string) (idTypes.Credential, error) {
	credential, err := s.identityDBService.GetCredential(tenantID, userID, credentialID)
	if err != nil {
		return idTypes.Credential{}, &apperrors.NotFoundError{ResourceType: "credential", ID: credentialID}
	}
	return credential, nil
}

func (s *Store) GetSingletonCredential(tenantID string, userID string, credentialType idTypes.CredentialType) (idTypes.Credential, error) {
	credential, err := s.identityDBService.GetCredentialByType(tenantID, userID, credentialType)
	if err != nil {
		return idTypes.Credential{}, &apperrors.NotFoundError{ResourceType: string(credentialType), ID: userID}
	}
	return credential, nil
}

func (s *Store) ListCredentials(tenantID string, userID string, credentialType idTypes.CredentialType) ([]idTypes.Credential, error) {
	return s.identityDBService.FindCredentialsByUserAndType(tenantID, userID, credentialType)
}

// NameTaken reports whether the name collides with an existing credential name,
// ignoring case.
func NameTaken(existing []idTypes.Credential, name string) bool {
	for _, credential := range existing {
		if strings.EqualFold(credential.Name, name) {
			return true
		}
	}
	return false
}

// CheckMfaPrecondition rejects enabling MFA without a registered TOTP device.
func CheckMfaPrecondition(totpCount int64) error {
	if totpCount < 1 {
		return &apperrors.PreconditionFailedError{Reason: "no TOTP device registered"}
	}
	return nil
}

// CheckTotpDeviceDeletable rejects removing the sole TOTP device while an MFA enabled
// credential still references it.
func CheckTotpDeviceDeletable(totpCount int64, mfaEnabledElsewhere bool, credentialID string) error {
	if totpCount <= 1 && mfaEnabledElsewhere {
		return &apperrors.StillReferencedError{
			ResourceType:    string(idTypes.CREDENTIAL_TYPE_TOTP),
			ID:              credentialID,
			ReferencingType: "mfa-enabled credential",
		}
	}
	return nil
}

// expiry helpers shared by reset and verify token flows

func GetExpirationTime(validityPeriod time.Duration) time.Time {
	return time.Now().Add(validityPeriod)
}

func ReachedExpirationTime(t time.Time) bool {
	return time.Now().After(t)
}
