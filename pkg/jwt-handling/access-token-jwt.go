package jwthandling

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julb/iam-backend/pkg/apperrors"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

const TOKEN_TYPE_BEARER = "Bearer"

// Information an access token encodes
type AccessTokenClaims struct {
	TenantID      string   `json:"tenant_id,omitempty"`
	SessionID     string   `json:"session_id,omitempty"`
	DisplayName   string   `json:"name,omitempty"`
	Locale        string   `json:"locale,omitempty"`
	Mail          string   `json:"mail,omitempty"`
	MailVerified  bool     `json:"mail_verified,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	PhoneVerified bool     `json:"phone_verified,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	MfaVerified   bool     `json:"mfa_verified,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken is the short-lived signed claims bundle returned to the caller. It is
// never persisted.
type AccessToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ExpiresIn   int64     `json:"expiresIn"`
	TokenType   string    `json:"tokenType"`
}

var (
	signingKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
)

// InitAccessTokenSigning loads the asymmetric signing key pair once at startup. When
// no key path is configured, access token minting stays disabled and reports
// UnsupportedOperationError.
func InitAccessTokenSigning(privateKeyPath string) error {
	if privateKeyPath == "" {
		return nil
	}

	pemData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return err
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return err
	}
	signingKey = key
	publicKey = &key.PublicKey
	return nil
}

func SigningEnabled() bool {
	return signingKey != nil
}

// GenerateNewAccessToken builds the signed claims set from the session and the user
// snapshot (profile, primary mail, primary phone, preferences, roles).
func GenerateNewAccessToken(
	expiresIn time.Duration,
	issuer string,
	audience string,
	tenantID string,
	user idTypes.User,
	session idTypes.Session,
) (AccessToken, error) {
	if signingKey == nil {
		return AccessToken{}, &apperrors.UnsupportedOperationError{Feature: "access token signing"}
	}

	expiresAt := time.Now().Add(expiresIn)

	claims := AccessTokenClaims{
		TenantID:    tenantID,
		SessionID:   session.SessionID,
		DisplayName: user.Profile.DisplayName,
		Locale:      user.Preferences.Locale,
		Roles:       user.Roles,
		MfaVerified: session.MfaVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	if mail, ok := user.PrimaryDevice(idTypes.RECOVERY_DEVICE_TYPE_MAIL); ok {
		claims.Mail = mail.Address
		claims.MailVerified = mail.Verified()
	}
	if phone, ok := user.PrimaryDevice(idTypes.RECOVERY_DEVICE_TYPE_PHONE); ok {
		claims.Phone = phone.Address
		claims.PhoneVerified = phone.Verified()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return AccessToken{}, err
	}

	return AccessToken{
		AccessToken: tokenString,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(expiresIn.Seconds()),
		TokenType:   TOKEN_TYPE_BEARER,
	}, nil
}

func ValidateAccessToken(tokenString string) (claims *AccessTokenClaims, valid bool, err error) {
	if publicKey == nil {
		return nil, false, &apperrors.UnsupportedOperationError{Feature: "access token signing"}
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	})
	if token == nil {
		return
	}
	claims, valid = token.Claims.(*AccessTokenClaims)
	valid = valid && token.Valid
	return
}
