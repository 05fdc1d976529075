package sessions

import (
	"log/slog"
	"time"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"
	jwthandling "github.com/julb/iam-backend/pkg/jwt-handling"

	"github.com/julb/iam-backend/pkg/apperrors"
	"github.com/julb/iam-backend/pkg/events"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	"github.com/julb/iam-backend/pkg/identity/secrets"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

type Manager struct {
	identityDBService *identityDB.IdentityDBService
	tokenIssuer       string
	tokenAudience     string
	accessTokenTTL    time.Duration
}

func NewManager(
	identityDBService *identityDB.IdentityDBService,
	tokenIssuer string,
	tokenAudience string,
	accessTokenTTL time.Duration,
) *Manager {
	return &Manager{
		identityDBService: identityDBService,
		tokenIssuer:       tokenIssuer,
		tokenAudience:     tokenAudience,
		accessTokenTTL:    accessTokenTTL,
	}
}

// SessionCreation carries the raw ID-token, handed out exactly once. Only the hash of
// the token is stored.
type SessionCreation struct {
	Session idTypes.Session
	IDToken string
}

// Create opens a session for the user and mints its composite ID-token.
func (m *Manager) Create(
	tenantID string,
	userID string,
	duration time.Duration,
	mfaVerified bool,
) (SessionCreation, error) {
	sessionID, err := secrets.GenerateID()
	if err != nil {
		return SessionCreation{}, err
	}

	idToken, err := secrets.BuildCompositeToken(sessionID, userID)
	if err != nil {
		return SessionCreation{}, err
	}

	idTokenHash, err := pwhash.HashSecret(idToken)
	if err != nil {
		return SessionCreation{}, err
	}

	session := idTypes.Session{
		SessionID:   sessionID,
		UserID:      userID,
		IDTokenHash: idTokenHash,
		ExpiresAt:   time.Now().Add(duration),
		MfaVerified: mfaVerified,
	}

	session, err = m.identityDBService.CreateSession(tenantID, session)
	if err != nil {
		return SessionCreation{}, err
	}

	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_SESSION, session.SessionID, events.EVENT_TYPE_CREATED, userID)
	return SessionCreation{
		Session: session,
		IDToken: idToken,
	}, nil
}

// TokenResponse is the result of exchanging an ID-token for an access token.
type TokenResponse struct {
	jwthandling.AccessToken
	IDToken          string    `json:"idToken"`
	IDTokenExpiresAt time.Time `json:"idTokenExpiresAt"`
}

// AccessTokenFromIDToken exchanges a raw ID-token for a signed access token carrying
// the current user snapshot. An absent session, a hash mismatch and an expired
// session are all rejected the same way.
func (m *Manager) AccessTokenFromIDToken(tenantID string, idToken string) (TokenResponse, error) {
	sessionID, _, err := secrets.ParseCompositeToken(idToken)
	if err != nil {
		return TokenResponse{}, &apperrors.UnauthorizedError{}
	}

	session, err := m.identityDBService.GetSession(tenantID, sessionID)
	if err != nil {
		return TokenResponse{}, &apperrors.UnauthorizedError{}
	}

	if err := ValidateSessionToken(session, idToken, time.Now()); err != nil {
		return TokenResponse{}, err
	}

	user, err := m.identityDBService.GetUser(tenantID, session.UserID)
	if err != nil {
		return TokenResponse{}, &apperrors.UnauthorizedError{}
	}

	accessToken, err := jwthandling.GenerateNewAccessToken(
		m.accessTokenTTL,
		m.tokenIssuer,
		m.tokenAudience,
		tenantID,
		user,
		session,
	)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := m.identityDBService.UpdateSessionLastUsed(tenantID, session.SessionID); err != nil {
		slog.Error("failed to update session last used", slog.String("sessionID", session.SessionID), slog.String("error", err.Error()))
	}

	return TokenResponse{
		AccessToken:      accessToken,
		IDToken:          idToken,
		IDTokenExpiresAt: session.ExpiresAt,
	}, nil
}

// ValidateSessionToken checks a raw ID-token against the stored session. The checks
// are ordered so the caller cannot distinguish the failure causes.
func ValidateSessionToken(session idTypes.Session, idToken string, now time.Time) error {
	if session.Expired(now) {
		return &apperrors.UnauthorizedError{}
	}
	match, err := pwhash.CompareSecretWithHash(session.IDTokenHash, idToken)
	if err != nil || !match {
		return &apperrors.UnauthorizedError{}
	}
	return nil
}

// MarkMfaVerified flags the session after a successful second factor check.
func (m *Manager) MarkMfaVerified(tenantID string, userID string, sessionID string) error {
	if err := m.identityDBService.MarkSessionMfaVerified(tenantID, userID, sessionID); err != nil {
		return &apperrors.UnauthorizedError{}
	}
	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_SESSION, sessionID, events.EVENT_TYPE_UPDATED, userID)
	return nil
}

// Delete closes a single session of the user.
func (m *Manager) Delete(tenantID string, userID string, sessionID string) error {
	if err := m.identityDBService.DeleteSession(tenantID, userID, sessionID); err != nil {
		return &apperrors.NotFoundError{ResourceType: "session", ID: sessionID}
	}
	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_SESSION, sessionID, events.EVENT_TYPE_DELETED, userID)
	return nil
}

// DeleteAll closes every session of the user.
func (m *Manager) DeleteAll(tenantID string, userID string) (int64, error) {
	count, err := m.identityDBService.DeleteSessionsByUserID(tenantID, userID)
	if err != nil {
		return 0, err
	}
	events.PostResourceEvent(tenantID, events.RESOURCE_TYPE_SESSION, userID, events.EVENT_TYPE_DELETED, userID)
	return count, nil
}
