package pwhash

import (
	"strings"
	"testing"
)

func TestHashSecret(t *testing.T) {
	t.Run("produces PHC formatted hash", func(t *testing.T) {
		hash, err := HashSecret("P@ss1234secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(hash, "$argon2id$") {
			t.Errorf("unexpected hash format: %s", hash)
		}
	})

	t.Run("same secret hashes differently", func(t *testing.T) {
		hash1, err := HashSecret("same-secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		hash2, err := HashSecret("same-secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hash1 == hash2 {
			t.Error("hashes should differ due to random salt")
		}
	})
}

func TestCompareSecretWithHash(t *testing.T) {
	t.Run("matches the original secret", func(t *testing.T) {
		secrets := []string{"P@ss1234", "1234", "a", strings.Repeat("x", 200), "token-98a7f3"}
		for _, secret := range secrets {
			hash, err := HashSecret(secret)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			match, err := CompareSecretWithHash(hash, secret)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !match {
				t.Errorf("secret should match its own hash: %s", secret)
			}
		}
	})

	t.Run("rejects a different secret", func(t *testing.T) {
		hash, err := HashSecret("correct-secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		match, err := CompareSecretWithHash(hash, "wrong-secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if match {
			t.Error("different secret should not match")
		}
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		cases := []string{
			"",
			"not-a-hash",
			"$bcrypt$v=19$m=65536,t=4,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=65536,t=4$c2FsdA$aGFzaA",
		}
		for _, c := range cases {
			if _, err := CompareSecretWithHash(c, "secret"); err == nil {
				t.Errorf("should fail for malformed hash: %s", c)
			}
		}
	})

	t.Run("verifies hashes created with other cost parameters", func(t *testing.T) {
		hash, err := HashSecret("migrating-secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		InitArgonParams(32*1024, 2, 2)
		defer InitArgonParams(64*1024, 4, 1)

		match, err := CompareSecretWithHash(hash, "migrating-secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !match {
			t.Error("hash should still verify after parameter change")
		}
	})
}
