package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwthandling "github.com/julb/iam-backend/pkg/jwt-handling"

	"github.com/julb/iam-backend/pkg/identity/credentials"
	"github.com/julb/iam-backend/pkg/utils"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "Api-Key"
)

func extractToken(c *gin.Context) (string, error) {
	req := c.Request

	var token string
	tokens, ok := req.Header[HeaderAuthorization]
	if ok && len(tokens) > 0 {
		token = tokens[0]
		token = strings.TrimPrefix(token, "Bearer ")
		if len(token) == 0 {
			return token, errors.New("no token found in Authorization header")
		}
	} else {
		return token, errors.New("no Authorization header found")
	}
	return token, nil
}

// GetAndValidateAccessToken extracts the access token from the request, validates its
// signature and stores the parsed claims on the context.
func GetAndValidateAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			slog.Warn("no Authorization token found")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		parsedToken, ok, err := jwthandling.ValidateAccessToken(token)
		if err != nil || !ok {
			slog.Warn("token validation failed")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "error during token validation"})
			c.Abort()
			return
		}
		c.Set("validatedToken", parsedToken)
	}
}

// RequireMfaVerified rejects requests whose access token was minted before the second
// factor check. Must run after GetAndValidateAccessToken.
func RequireMfaVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenValue, exists := c.Get("validatedToken")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
			c.Abort()
			return
		}
		parsedToken, ok := tokenValue.(*jwthandling.AccessTokenClaims)
		if !ok || !parsedToken.MfaVerified {
			c.JSON(http.StatusForbidden, gin.H{"error": "second factor check required"})
			c.Abort()
			return
		}
	}
}

// HasValidServiceKey guards internal service endpoints with a static key list.
func HasValidServiceKey(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		keysInHeader, ok := c.Request.Header[HeaderAPIKey]
		if !ok || len(keysInHeader) < 1 {
			slog.Error("a valid API key missing")
			c.JSON(http.StatusBadRequest, gin.H{"error": "a valid API key missing"})
			c.Abort()
			return
		}

		for _, k := range keysInHeader {
			if utils.ContainsString(validKeys, k) {
				c.Next()
				return
			}
		}

		slog.Error("a valid API key missing")
		c.JSON(http.StatusBadRequest, gin.H{"error": "a valid API key missing"})
		c.Abort()
	}
}

// HasValidAPIKey resolves the credential behind the submitted API key and stores it
// on the context. The tenant is taken from the URL parameter.
func HasValidAPIKey(credentialStore *credentials.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		keysInHeader, ok := c.Request.Header[HeaderAPIKey]
		if !ok || len(keysInHeader) < 1 {
			slog.Error("a valid API key missing")
			c.JSON(http.StatusBadRequest, gin.H{"error": "a valid API key missing"})
			c.Abort()
			return
		}

		tenantID := c.Param("tenantID")
		credential, err := credentialStore.VerifyApiKey(tenantID, keysInHeader[0])
		if err != nil {
			slog.Warn("API key rejected", slog.String("tenantID", tenantID))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}
		c.Set("apiKeyCredential", credential)
		c.Set("apiKeyUserID", credential.UserID)
	}
}
