package types

import (
	"fmt"
	"testing"
	"time"
)

func TestRotateSecretHash(t *testing.T) {
	t.Run("first rotation leaves no history", func(t *testing.T) {
		credential := Credential{}
		credential.RotateSecretHash("h1")
		if credential.SecretHash != "h1" {
			t.Errorf("unexpected hash: %s", credential.SecretHash)
		}
		if len(credential.SecretHistory) != 0 {
			t.Errorf("unexpected history: %v", credential.SecretHistory)
		}
	})

	t.Run("history keeps the most recent hashes only", func(t *testing.T) {
		credential := Credential{}
		for i := 1; i <= 7; i++ {
			credential.RotateSecretHash(fmt.Sprintf("h%d", i))
		}
		if credential.SecretHash != "h7" {
			t.Errorf("unexpected hash: %s", credential.SecretHash)
		}
		if len(credential.SecretHistory) != SECRET_HISTORY_LIMIT {
			t.Fatalf("unexpected history length: %d", len(credential.SecretHistory))
		}
		expected := []string{"h2", "h3", "h4", "h5", "h6"}
		for i, hash := range expected {
			if credential.SecretHistory[i] != hash {
				t.Errorf("unexpected history entry %d: %s", i, credential.SecretHistory[i])
			}
		}
	})

	t.Run("rotation clears reset token and counters", func(t *testing.T) {
		credential := Credential{
			SecretHash:          "h1",
			FailedAttempts:      3,
			ResetTokenHash:      "rt",
			ResetTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		}
		credential.RotateSecretHash("h2")
		if credential.FailedAttempts != 0 {
			t.Errorf("failed attempts should reset, got %d", credential.FailedAttempts)
		}
		if credential.HasPendingResetToken() {
			t.Error("reset token should be cleared")
		}
	})
}

func TestResetTokenExpired(t *testing.T) {
	t.Run("no expiry set", func(t *testing.T) {
		credential := Credential{}
		if credential.ResetTokenExpired(time.Now()) {
			t.Error("credential without expiry should not report expired")
		}
	})

	t.Run("future expiry", func(t *testing.T) {
		credential := Credential{ResetTokenExpiresAt: time.Now().Add(time.Hour).Unix()}
		if credential.ResetTokenExpired(time.Now()) {
			t.Error("future expiry should not report expired")
		}
	})

	t.Run("past expiry", func(t *testing.T) {
		credential := Credential{ResetTokenExpiresAt: time.Now().Add(-time.Minute).Unix()}
		if !credential.ResetTokenExpired(time.Now()) {
			t.Error("past expiry should report expired")
		}
	})
}

func TestSupportsMfa(t *testing.T) {
	cases := map[CredentialType]bool{
		CREDENTIAL_TYPE_PASSWORD: true,
		CREDENTIAL_TYPE_PINCODE:  true,
		CREDENTIAL_TYPE_TOTP:     false,
		CREDENTIAL_TYPE_API_KEY:  false,
	}
	for credentialType, expected := range cases {
		credential := Credential{Type: credentialType}
		if credential.SupportsMfa() != expected {
			t.Errorf("unexpected SupportsMfa for %s", credentialType)
		}
	}
}
