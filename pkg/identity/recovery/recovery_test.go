package recovery

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/julb/iam-backend/pkg/apperrors"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func TestMaskMail(t *testing.T) {
	t.Run("short local part", func(t *testing.T) {
		masked := MaskMail("ab@example.com")
		if masked != "a**********b@example.com" {
			t.Errorf("unexpected mask: %s", masked)
		}
	})

	t.Run("longer local part", func(t *testing.T) {
		masked := MaskMail("jeanne.doe@mail.org")
		if masked != "j**********e@mail.org" {
			t.Errorf("unexpected mask: %s", masked)
		}
	})

	t.Run("fixed filler hides length", func(t *testing.T) {
		a := MaskMail("ab@example.com")
		b := MaskMail("annabelle@example.com")
		if len(a)-len("ab") != len(b)-len("annabelle") {
			t.Error("mask width should not depend on the local part length")
		}
	})

	t.Run("no at sign", func(t *testing.T) {
		if masked := MaskMail("not-an-address"); masked != "**********" {
			t.Errorf("unexpected mask: %s", masked)
		}
	})
}

func TestMaskPhone(t *testing.T) {
	t.Run("international number", func(t *testing.T) {
		masked := MaskPhone("+33612345678")
		if masked != "+336**********78" {
			t.Errorf("unexpected mask: %s", masked)
		}
	})

	t.Run("too short", func(t *testing.T) {
		if masked := MaskPhone("123"); masked != "**********" {
			t.Errorf("unexpected mask: %s", masked)
		}
	})
}

func TestChannelsForUser(t *testing.T) {
	verifiedAt := time.Now().Unix()
	user := idTypes.User{
		RecoveryDevices: []idTypes.RecoveryDevice{
			{ID: primitive.NewObjectID(), Type: idTypes.RECOVERY_DEVICE_TYPE_PHONE, Address: "+33612345678", VerifiedAt: verifiedAt},
			{ID: primitive.NewObjectID(), Type: idTypes.RECOVERY_DEVICE_TYPE_MAIL, Address: "ab@example.com", VerifiedAt: verifiedAt},
			{ID: primitive.NewObjectID(), Type: idTypes.RECOVERY_DEVICE_TYPE_MAIL, Address: "pending@example.com"},
		},
	}

	t.Run("verified devices only, mail first", func(t *testing.T) {
		channels := ChannelsForUser(user, []string{idTypes.RECOVERY_DEVICE_TYPE_MAIL, idTypes.RECOVERY_DEVICE_TYPE_PHONE})
		if len(channels) != 2 {
			t.Fatalf("unexpected channel count: %d", len(channels))
		}
		if channels[0].Type != idTypes.RECOVERY_DEVICE_TYPE_MAIL {
			t.Errorf("mail should come first, got %s", channels[0].Type)
		}
		if channels[0].MaskedAddress != "a**********b@example.com" {
			t.Errorf("unexpected masked address: %s", channels[0].MaskedAddress)
		}
		if channels[1].MaskedAddress != "+336**********78" {
			t.Errorf("unexpected masked address: %s", channels[1].MaskedAddress)
		}
	})

	t.Run("disabled channel filtered out", func(t *testing.T) {
		channels := ChannelsForUser(user, []string{idTypes.RECOVERY_DEVICE_TYPE_MAIL})
		if len(channels) != 1 {
			t.Fatalf("unexpected channel count: %d", len(channels))
		}
		if channels[0].Type != idTypes.RECOVERY_DEVICE_TYPE_MAIL {
			t.Errorf("unexpected channel type: %s", channels[0].Type)
		}
	})

	t.Run("no enabled channels", func(t *testing.T) {
		channels := ChannelsForUser(user, nil)
		if len(channels) != 0 {
			t.Errorf("unexpected channel count: %d", len(channels))
		}
	})
}

func TestCheckResetToken(t *testing.T) {
	token := "reset-token-value"
	tokenHash, err := pwhash.HashSecret(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("valid token accepted", func(t *testing.T) {
		credential := idTypes.Credential{
			ResetTokenHash:      tokenHash,
			ResetTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
		if err := CheckResetToken(credential, token, time.Now()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("no pending token", func(t *testing.T) {
		err := CheckResetToken(idTypes.Credential{}, token, time.Now())
		var iErr *apperrors.InvalidResetTokenError
		if !errors.As(err, &iErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		credential := idTypes.Credential{
			ResetTokenHash:      tokenHash,
			ResetTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
		err := CheckResetToken(credential, "some-other-token", time.Now())
		var iErr *apperrors.InvalidResetTokenError
		if !errors.As(err, &iErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("expired token rejected even when it matches", func(t *testing.T) {
		credential := idTypes.Credential{
			ResetTokenHash:      tokenHash,
			ResetTokenExpiresAt: time.Now().Add(-time.Minute).Unix(),
		}
		err := CheckResetToken(credential, token, time.Now())
		var eErr *apperrors.ResetTokenExpiredError
		if !errors.As(err, &eErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
