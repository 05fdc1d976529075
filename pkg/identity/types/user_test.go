package types

import (
	"testing"
	"time"
)

func TestConfirmRecoveryDevice(t *testing.T) {
	t.Run("confirming primary device unlocks the account", func(t *testing.T) {
		user := User{AccountLocked: true}
		device := user.AddRecoveryDevice(RECOVERY_DEVICE_TYPE_MAIL, "test@example.com", true)
		if err := user.SetDeviceVerifyToken(device.ID.Hex(), "hash", time.Now().Add(time.Hour).Unix()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := user.ConfirmRecoveryDevice(device.ID.Hex()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		confirmed, _ := user.FindRecoveryDevice(device.ID.Hex())
		if !confirmed.Verified() {
			t.Error("device should be verified")
		}
		if confirmed.VerifyTokenHash != "" {
			t.Error("verify token should be cleared")
		}
		if user.AccountLocked {
			t.Error("account should be unlocked")
		}
		if user.Timestamps.UnlockedAt == 0 {
			t.Error("unlock timestamp should be set")
		}
	})

	t.Run("confirming secondary device keeps account locked", func(t *testing.T) {
		user := User{AccountLocked: true}
		device := user.AddRecoveryDevice(RECOVERY_DEVICE_TYPE_PHONE, "+33612345678", false)

		if err := user.ConfirmRecoveryDevice(device.ID.Hex()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !user.AccountLocked {
			t.Error("account should stay locked")
		}
	})

	t.Run("unknown device", func(t *testing.T) {
		user := User{}
		if err := user.ConfirmRecoveryDevice("missing"); err == nil {
			t.Error("should report missing device")
		}
	})
}

func TestRemoveRecoveryDevice(t *testing.T) {
	user := User{}
	primary := user.AddRecoveryDevice(RECOVERY_DEVICE_TYPE_MAIL, "primary@example.com", true)
	secondary := user.AddRecoveryDevice(RECOVERY_DEVICE_TYPE_PHONE, "+33612345678", false)

	t.Run("primary device is protected", func(t *testing.T) {
		if err := user.RemoveRecoveryDevice(primary.ID.Hex()); err == nil {
			t.Error("primary device should not be removable")
		}
	})

	t.Run("secondary device can be removed", func(t *testing.T) {
		if err := user.RemoveRecoveryDevice(secondary.ID.Hex()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if _, found := user.FindRecoveryDevice(secondary.ID.Hex()); found {
			t.Error("device should be gone")
		}
	})
}

func TestPrimaryDevice(t *testing.T) {
	user := User{}
	user.AddRecoveryDevice(RECOVERY_DEVICE_TYPE_MAIL, "secondary@example.com", false)
	user.AddRecoveryDevice(RECOVERY_DEVICE_TYPE_MAIL, "primary@example.com", true)

	device, found := user.PrimaryDevice(RECOVERY_DEVICE_TYPE_MAIL)
	if !found {
		t.Fatal("primary mail device should be found")
	}
	if device.Address != "primary@example.com" {
		t.Errorf("unexpected address: %s", device.Address)
	}

	if _, found := user.PrimaryDevice(RECOVERY_DEVICE_TYPE_PHONE); found {
		t.Error("no primary phone device should be found")
	}
}

func TestHasRole(t *testing.T) {
	user := User{Roles: []string{"ADMIN"}}
	if !user.HasRole("ADMIN") {
		t.Error("should have ADMIN role")
	}
	if user.HasRole("SERVICE") {
		t.Error("should not have SERVICE role")
	}
}
