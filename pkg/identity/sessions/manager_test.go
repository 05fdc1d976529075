package sessions

import (
	"errors"
	"testing"
	"time"

	"github.com/julb/iam-backend/pkg/apperrors"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	"github.com/julb/iam-backend/pkg/identity/secrets"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func newTestSession(t *testing.T, expiresAt time.Time) (idTypes.Session, string) {
	t.Helper()

	sessionID, err := secrets.GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userID, err := secrets.GenerateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idToken, err := secrets.BuildCompositeToken(sessionID, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idTokenHash, err := pwhash.HashSecret(idToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return idTypes.Session{
		SessionID:   sessionID,
		UserID:      userID,
		IDTokenHash: idTokenHash,
		ExpiresAt:   expiresAt,
	}, idToken
}

func TestValidateSessionToken(t *testing.T) {
	t.Run("valid token accepted", func(t *testing.T) {
		session, idToken := newTestSession(t, time.Now().Add(time.Hour))
		if err := ValidateSessionToken(session, idToken, time.Now()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("expired session rejected", func(t *testing.T) {
		session, idToken := newTestSession(t, time.Now().Add(-time.Minute))
		err := ValidateSessionToken(session, idToken, time.Now())
		var uErr *apperrors.UnauthorizedError
		if !errors.As(err, &uErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("token for another session rejected", func(t *testing.T) {
		session, _ := newTestSession(t, time.Now().Add(time.Hour))
		_, otherToken := newTestSession(t, time.Now().Add(time.Hour))
		err := ValidateSessionToken(session, otherToken, time.Now())
		var uErr *apperrors.UnauthorizedError
		if !errors.As(err, &uErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("expiry and mismatch are indistinguishable", func(t *testing.T) {
		session, idToken := newTestSession(t, time.Now().Add(-time.Minute))
		expiredErr := ValidateSessionToken(session, idToken, time.Now())

		session2, _ := newTestSession(t, time.Now().Add(time.Hour))
		mismatchErr := ValidateSessionToken(session2, idToken, time.Now())

		if expiredErr.Error() != mismatchErr.Error() {
			t.Error("failure causes should not be distinguishable from the error")
		}
	})
}
