package secrets

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("has fixed width and allowed characters", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			id, err := GenerateID()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(id) != IDLength {
				t.Errorf("unexpected id length: %d", len(id))
			}
			for _, c := range id {
				if !strings.ContainsRune(tokenAlphabet, c) {
					t.Errorf("unexpected character in id: %c", c)
				}
			}
		}
	})

	t.Run("does not repeat", func(t *testing.T) {
		seen := map[string]struct{}{}
		for i := 0; i < 1000; i++ {
			id, err := GenerateID()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, ok := seen[id]; ok {
				t.Fatalf("duplicate id generated: %s", id)
			}
			seen[id] = struct{}{}
		}
	})
}

func TestCompositeTokenRoundTrip(t *testing.T) {
	for i := 0; i < 100; i++ {
		resourceID, err := GenerateID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		userID, err := GenerateID()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		token, err := BuildCompositeToken(resourceID, userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(token) != TokenLength {
			t.Fatalf("unexpected token length: %d", len(token))
		}

		gotResourceID, gotUserID, err := ParseCompositeToken(token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotResourceID != resourceID {
			t.Errorf("resource id mismatch: got %s, want %s", gotResourceID, resourceID)
		}
		if gotUserID != userID {
			t.Errorf("user id mismatch: got %s, want %s", gotUserID, userID)
		}
	}
}

func TestBuildCompositeToken(t *testing.T) {
	t.Run("rejects ids with wrong width", func(t *testing.T) {
		userID, _ := GenerateID()
		if _, err := BuildCompositeToken("tooShort", userID); err == nil {
			t.Error("should fail for short resource id")
		}
		if _, err := BuildCompositeToken(strings.Repeat("a", IDLength+1), userID); err == nil {
			t.Error("should fail for long resource id")
		}
		if _, err := BuildCompositeToken(userID, "tooShort"); err == nil {
			t.Error("should fail for short user id")
		}
	})

	t.Run("rejects ids with characters outside the alphabet", func(t *testing.T) {
		userID, _ := GenerateID()
		badID := strings.Repeat("a", IDLength-1) + "!"
		if _, err := BuildCompositeToken(badID, userID); err == nil {
			t.Error("should fail for id with invalid character")
		}
	})

	t.Run("ids are not contiguous in the token", func(t *testing.T) {
		resourceID, _ := GenerateID()
		userID, _ := GenerateID()
		token, err := BuildCompositeToken(resourceID, userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(token, resourceID) {
			t.Error("resource id appears as contiguous substring")
		}
		if strings.Contains(token, userID) {
			t.Error("user id appears as contiguous substring")
		}
	})
}

func TestParseCompositeToken(t *testing.T) {
	t.Run("rejects wrong length", func(t *testing.T) {
		if _, _, err := ParseCompositeToken("short"); err == nil {
			t.Error("should fail for short token")
		}
		if _, _, err := ParseCompositeToken(strings.Repeat("a", TokenLength+2)); err == nil {
			t.Error("should fail for long token")
		}
	})

	t.Run("rejects characters outside the alphabet", func(t *testing.T) {
		token := strings.Repeat("a", TokenLength-1) + "$"
		if _, _, err := ParseCompositeToken(token); err == nil {
			t.Error("should fail for token with invalid character")
		}
	})
}

func TestGenerateOpaqueToken(t *testing.T) {
	token1, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token2, err := GenerateOpaqueToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token1 == token2 {
		t.Error("tokens should not repeat")
	}
	if len(token1) == 0 {
		t.Error("token should not be empty")
	}
}
