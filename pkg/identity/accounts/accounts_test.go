package accounts

import (
	"errors"
	"testing"
	"time"

	"github.com/julb/iam-backend/pkg/apperrors"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func TestCheckVerifyToken(t *testing.T) {
	token := "verify-token-value"
	tokenHash, err := pwhash.HashSecret(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("valid token accepted", func(t *testing.T) {
		device := idTypes.RecoveryDevice{
			VerifyTokenHash:      tokenHash,
			VerifyTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
		if err := CheckVerifyToken(device, token, time.Now()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("no pending token", func(t *testing.T) {
		err := CheckVerifyToken(idTypes.RecoveryDevice{}, token, time.Now())
		var iErr *apperrors.InvalidResetTokenError
		if !errors.As(err, &iErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("already verified device", func(t *testing.T) {
		device := idTypes.RecoveryDevice{
			VerifiedAt:      time.Now().Unix(),
			VerifyTokenHash: tokenHash,
		}
		err := CheckVerifyToken(device, token, time.Now())
		if err == nil {
			t.Error("should reject token for an already verified device")
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		device := idTypes.RecoveryDevice{
			VerifyTokenHash:      tokenHash,
			VerifyTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
		err := CheckVerifyToken(device, "some-other-token", time.Now())
		var iErr *apperrors.InvalidResetTokenError
		if !errors.As(err, &iErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("expired token rejected even when it matches", func(t *testing.T) {
		device := idTypes.RecoveryDevice{
			VerifyTokenHash:      tokenHash,
			VerifyTokenExpiresAt: time.Now().Add(-time.Minute).Unix(),
		}
		err := CheckVerifyToken(device, token, time.Now())
		var eErr *apperrors.ResetTokenExpiredError
		if !errors.As(err, &eErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
