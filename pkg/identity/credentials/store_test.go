package credentials

import (
	"errors"
	"testing"
	"time"

	"github.com/julb/iam-backend/pkg/apperrors"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func TestNameTaken(t *testing.T) {
	existing := []idTypes.Credential{
		{Name: "Laptop"},
		{Name: "backup phone"},
	}

	t.Run("exact match", func(t *testing.T) {
		if !NameTaken(existing, "Laptop") {
			t.Error("should report name as taken")
		}
	})

	t.Run("case insensitive match", func(t *testing.T) {
		if !NameTaken(existing, "LAPTOP") {
			t.Error("should report name as taken regardless of case")
		}
	})

	t.Run("free name", func(t *testing.T) {
		if NameTaken(existing, "tablet") {
			t.Error("should not report free name as taken")
		}
	})

	t.Run("empty list", func(t *testing.T) {
		if NameTaken(nil, "Laptop") {
			t.Error("should not report name as taken with no existing credentials")
		}
	})
}

func TestCheckMfaPrecondition(t *testing.T) {
	t.Run("no devices", func(t *testing.T) {
		err := CheckMfaPrecondition(0)
		if err == nil {
			t.Error("should reject enabling MFA without a TOTP device")
		}
		var pErr *apperrors.PreconditionFailedError
		if !errors.As(err, &pErr) {
			t.Errorf("unexpected error type: %v", err)
		}
	})

	t.Run("one device", func(t *testing.T) {
		if err := CheckMfaPrecondition(1); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestCheckTotpDeviceDeletable(t *testing.T) {
	t.Run("last device still referenced", func(t *testing.T) {
		err := CheckTotpDeviceDeletable(1, true, "c1")
		if err == nil {
			t.Error("should reject deleting the sole TOTP device")
		}
		var sErr *apperrors.StillReferencedError
		if !errors.As(err, &sErr) {
			t.Errorf("unexpected error type: %v", err)
		}
	})

	t.Run("last device without MFA", func(t *testing.T) {
		if err := CheckTotpDeviceDeletable(1, false, "c1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("other devices remain", func(t *testing.T) {
		if err := CheckTotpDeviceDeletable(2, true, "c1"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestExpirationHelpers(t *testing.T) {
	t.Run("future expiry not reached", func(t *testing.T) {
		exp := GetExpirationTime(time.Hour)
		if ReachedExpirationTime(exp) {
			t.Error("expiry in one hour should not be reached")
		}
	})

	t.Run("past expiry reached", func(t *testing.T) {
		exp := GetExpirationTime(-time.Minute)
		if !ReachedExpirationTime(exp) {
			t.Error("expiry in the past should be reached")
		}
	})
}
