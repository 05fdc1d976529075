package jwthandling

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/julb/iam-backend/pkg/apperrors"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func writeTestSigningKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	keyPath := filepath.Join(t.TempDir(), "signing-key.pem")
	if err := os.WriteFile(keyPath, pemData, 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return keyPath
}

func testUserAndSession() (idTypes.User, idTypes.Session) {
	user := idTypes.User{
		UserID: "u1",
		Roles:  []string{"PARTICIPANT"},
		Profile: idTypes.Profile{
			DisplayName: "Test User",
		},
		Preferences: idTypes.Preferences{Locale: "en"},
		RecoveryDevices: []idTypes.RecoveryDevice{
			{
				ID:         primitive.NewObjectID(),
				Type:       idTypes.RECOVERY_DEVICE_TYPE_MAIL,
				Address:    "test@example.com",
				Primary:    true,
				VerifiedAt: time.Now().Unix(),
			},
		},
	}
	session := idTypes.Session{
		SessionID:   "s1",
		UserID:      "u1",
		MfaVerified: true,
	}
	return user, session
}

func TestAccessTokenSigning(t *testing.T) {
	signingKey = nil
	publicKey = nil

	t.Run("signing disabled without key", func(t *testing.T) {
		user, session := testUserAndSession()
		_, err := GenerateNewAccessToken(time.Minute, "issuer", "audience", "t1", user, session)
		var uErr *apperrors.UnsupportedOperationError
		if !errors.As(err, &uErr) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	if err := InitAccessTokenSigning(writeTestSigningKey(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		signingKey = nil
		publicKey = nil
	}()

	t.Run("sign and validate round trip", func(t *testing.T) {
		user, session := testUserAndSession()
		token, err := GenerateNewAccessToken(5*time.Minute, "issuer", "audience", "t1", user, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token.TokenType != TOKEN_TYPE_BEARER {
			t.Errorf("unexpected token type: %s", token.TokenType)
		}
		if token.ExpiresIn != 300 {
			t.Errorf("unexpected expiresIn: %d", token.ExpiresIn)
		}

		claims, valid, err := ValidateAccessToken(token.AccessToken)
		if err != nil || !valid {
			t.Fatalf("token should validate, valid=%t err=%v", valid, err)
		}
		if claims.Subject != "u1" {
			t.Errorf("unexpected subject: %s", claims.Subject)
		}
		if claims.TenantID != "t1" {
			t.Errorf("unexpected tenant: %s", claims.TenantID)
		}
		if claims.SessionID != "s1" {
			t.Errorf("unexpected session: %s", claims.SessionID)
		}
		if claims.Mail != "test@example.com" || !claims.MailVerified {
			t.Errorf("unexpected mail claims: %s verified=%t", claims.Mail, claims.MailVerified)
		}
		if !claims.MfaVerified {
			t.Error("mfa verified flag should carry over")
		}
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		user, session := testUserAndSession()
		token, err := GenerateNewAccessToken(5*time.Minute, "issuer", "audience", "t1", user, session)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tampered := token.AccessToken + "x"
		_, valid, err := ValidateAccessToken(tampered)
		if valid {
			t.Error("tampered token should not validate")
		}
		if err == nil {
			t.Error("tampered token should produce an error")
		}
	})
}
