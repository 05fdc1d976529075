package totp

import (
	"crypto/rand"
	"strings"
	"time"

	b32 "encoding/base32"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	secretByteLength = 20

	// standard TOTP parameters: 30 second step, 6 digits, SHA1
	period = 30
	digits = otp.DigitsSix
)

// GenerateSecret returns a new random base32 encoded shared secret.
func GenerateSecret() (string, error) {
	buffer := make([]byte, secretByteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	secret := b32.StdEncoding.WithPadding(b32.NoPadding).EncodeToString(buffer)
	return strings.ToUpper(secret), nil
}

// ValidCodes returns every code that is acceptable within +/- windowSteps time steps
// of now. The caller compares the submitted code against this set through the regular
// hash-compare primitive, like any other secret.
func ValidCodes(secret string, windowSteps int) ([]string, error) {
	return validCodesAt(secret, windowSteps, time.Now())
}

func validCodesAt(secret string, windowSteps int, now time.Time) ([]string, error) {
	codes := make([]string, 0, 2*windowSteps+1)
	seen := map[string]struct{}{}
	for step := -windowSteps; step <= windowSteps; step++ {
		at := now.Add(time.Duration(step*period) * time.Second)
		code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
			Period:    period,
			Digits:    digits,
			Algorithm: otp.AlgorithmSHA1,
		})
		if err != nil {
			return nil, err
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// ProvisioningURI builds the otpauth:// URL that authenticator apps scan at device
// registration.
func ProvisioningURI(account string, issuer string, secret string) (string, error) {
	rawSecret, err := b32.StdEncoding.WithPadding(b32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Secret:      rawSecret,
		Period:      period,
		Digits:      digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.URL(), nil
}
