package pwhash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// One-way hashing for every secret the identity backend stores: passwords, pincodes,
// reset and verify tokens, API keys, session ID-tokens and TOTP candidate codes.
// Verification is always hash comparison, never decryption.

const (
	algorithmID = "argon2id"

	saltLength = 16
	keyLength  = 32
)

var (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 4
	argonParallelism uint8  = 1
)

// InitArgonParams overrides the default argon2 cost parameters. Call once at startup.
func InitArgonParams(memory uint32, iterations uint32, parallelism uint8) {
	if memory > 0 {
		argonMemory = memory
	}
	if iterations > 0 {
		argonIterations = iterations
	}
	if parallelism > 0 {
		argonParallelism = parallelism
	}
}

// HashSecret returns the argon2id hash of the secret in PHC string format.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, argonIterations, argonMemory, argonParallelism, keyLength)

	encoded := fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return encoded, nil
}

// CompareSecretWithHash checks the candidate secret against a stored hash. The hash
// string carries its own cost parameters, so hashes created with older parameters keep
// verifying after the configuration changed.
func CompareSecretWithHash(encodedHash string, candidate string) (bool, error) {
	memory, iterations, parallelism, salt, hash, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(candidate), salt, iterations, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(computed, hash) == 1, nil
}

func decodeHash(encodedHash string) (memory uint32, iterations uint32, parallelism uint8, salt []byte, hash []byte, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		err = errors.New("invalid hash format")
		return
	}
	if parts[1] != algorithmID {
		err = errors.New("unsupported hash algorithm")
		return
	}

	var version int
	if _, scanErr := fmt.Sscanf(parts[2], "v=%d", &version); scanErr != nil {
		err = errors.New("invalid hash version")
		return
	}
	if version != argon2.Version {
		err = errors.New("unsupported hash version")
		return
	}

	for _, kv := range strings.Split(parts[3], ",") {
		entry := strings.SplitN(kv, "=", 2)
		if len(entry) != 2 {
			err = errors.New("invalid hash parameters")
			return
		}
		value, parseErr := strconv.ParseUint(entry[1], 10, 32)
		if parseErr != nil {
			err = errors.New("invalid hash parameters")
			return
		}
		switch entry[0] {
		case "m":
			memory = uint32(value)
		case "t":
			iterations = uint32(value)
		case "p":
			parallelism = uint8(value)
		default:
			err = errors.New("invalid hash parameters")
			return
		}
	}
	if memory == 0 || iterations == 0 || parallelism == 0 {
		err = errors.New("invalid hash parameters")
		return
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		err = errors.New("invalid salt encoding")
		return
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		err = errors.New("invalid hash encoding")
		return
	}
	if len(hash) == 0 {
		err = errors.New("invalid hash length")
	}
	return
}
