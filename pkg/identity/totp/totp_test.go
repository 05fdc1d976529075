package totp

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(secret) != 32 {
		t.Errorf("unexpected secret length: %d", len(secret))
	}
	if secret != strings.ToUpper(secret) {
		t.Error("secret should be upper case base32")
	}

	other, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret == other {
		t.Error("secrets should not repeat")
	}
}

func TestValidCodes(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("contains the code of each step in the window", func(t *testing.T) {
		now := time.Now()
		codes, err := validCodesAt(secret, 1, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(codes) == 0 || len(codes) > 3 {
			t.Fatalf("unexpected number of codes: %d", len(codes))
		}

		for _, offset := range []time.Duration{-period * time.Second, 0, period * time.Second} {
			code, err := totp.GenerateCodeCustom(secret, now.Add(offset), totp.ValidateOpts{
				Period:    period,
				Digits:    otp.DigitsSix,
				Algorithm: otp.AlgorithmSHA1,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			found := false
			for _, c := range codes {
				if c == code {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("code for offset %s missing from window", offset)
			}
		}
	})

	t.Run("does not contain codes outside the window", func(t *testing.T) {
		now := time.Now()
		codes, err := validCodesAt(secret, 0, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(codes) != 1 {
			t.Fatalf("unexpected number of codes: %d", len(codes))
		}

		farCode, err := totp.GenerateCodeCustom(secret, now.Add(10*period*time.Second), totp.ValidateOpts{
			Period:    period,
			Digits:    otp.DigitsSix,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if codes[0] == farCode {
			t.Error("code outside the window should not be valid")
		}
	})
}

func TestProvisioningURI(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uri, err := ProvisioningURI("user@example.com", "iam-backend", secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Errorf("unexpected uri: %s", uri)
	}
	if !strings.Contains(uri, "iam-backend") {
		t.Errorf("issuer missing from uri: %s", uri)
	}
	if !strings.Contains(uri, "secret="+secret) {
		t.Errorf("secret missing from uri: %s", uri)
	}
}
