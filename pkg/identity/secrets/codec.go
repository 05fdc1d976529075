package secrets

import (
	"crypto/rand"
	"strings"
	"time"

	b32 "encoding/base32"

	"github.com/julb/iam-backend/pkg/apperrors"
)

const (
	// IDLength is the fixed width of every identifier that takes part in the
	// composite token scheme (user ids, session ids, api-key credential ids).
	// The decode arithmetic below silently breaks if this ever changes, so the
	// width is asserted on both encode and id generation.
	IDLength = 32

	// TokenLength is the width of a composite bearer token: the two interleaved
	// halves of IDLength*2 characters each.
	TokenLength = 4 * IDLength

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateID returns a new fixed-width random identifier.
func GenerateID() (string, error) {
	return randomString(IDLength)
}

// BuildCompositeToken encodes a resource id and a user id into a single bearer token.
// The concatenation of both ids is interleaved character by character with an equally
// long random string, so the ids never appear as contiguous substrings of the token.
// Callers must only ever store a one-way hash of the returned value.
func BuildCompositeToken(resourceID string, userID string) (string, error) {
	if err := checkID(resourceID); err != nil {
		return "", err
	}
	if err := checkID(userID); err != nil {
		return "", err
	}

	carrier := resourceID + userID
	noise, err := randomString(len(carrier))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(TokenLength)
	for i := 0; i < len(carrier); i++ {
		sb.WriteByte(carrier[i])
		sb.WriteByte(noise[i])
	}
	return sb.String(), nil
}

// ParseCompositeToken recovers the resource id and user id from a composite token.
func ParseCompositeToken(token string) (resourceID string, userID string, err error) {
	if len(token) != TokenLength {
		return "", "", &apperrors.MalformedTokenError{Reason: "unexpected token length"}
	}
	for i := 0; i < len(token); i++ {
		if !strings.ContainsRune(tokenAlphabet, rune(token[i])) {
			return "", "", &apperrors.MalformedTokenError{Reason: "unexpected character in token"}
		}
	}

	var sb strings.Builder
	sb.Grow(2 * IDLength)
	for i := 0; i < TokenLength; i += 2 {
		sb.WriteByte(token[i])
	}
	carrier := sb.String()
	return carrier[:IDLength], carrier[IDLength:], nil
}

// GenerateOpaqueToken returns a random single-use token for reset and verification
// flows. The first bytes encode the creation time so tokens sort chronologically.
func GenerateOpaqueToken() (string, error) {
	t := time.Now()
	ms := uint64(t.Unix())*1000 + uint64(t.Nanosecond()/int(time.Millisecond))

	token := make([]byte, 24)
	token[0] = byte(ms >> 40)
	token[1] = byte(ms >> 32)
	token[2] = byte(ms >> 24)
	token[3] = byte(ms >> 16)
	token[4] = byte(ms >> 8)
	token[5] = byte(ms)

	_, err := rand.Read(token[6:])
	if err != nil {
		return "", err
	}

	tokenStr := b32.StdEncoding.WithPadding(b32.NoPadding).EncodeToString(token)
	return strings.ToLower(tokenStr), nil
}

func checkID(id string) error {
	if len(id) != IDLength {
		return &apperrors.MalformedTokenError{Reason: "unexpected id length"}
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(tokenAlphabet, rune(id[i])) {
			return &apperrors.MalformedTokenError{Reason: "unexpected character in id"}
		}
	}
	return nil
}

func randomString(length int) (string, error) {
	buffer := make([]byte, length)
	_, err := rand.Read(buffer)
	if err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		buffer[i] = tokenAlphabet[int(buffer[i])%len(tokenAlphabet)]
	}
	return string(buffer), nil
}
