package apihandlers

import (
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/julb/iam-backend/pkg/apperrors"
	jwthandling "github.com/julb/iam-backend/pkg/jwt-handling"
	"github.com/julb/iam-backend/pkg/utils"
)

func (h *HttpEndpoints) isTenantAllowed(tenantID string) bool {
	return utils.ContainsString(h.allowedTenantIDs, tenantID)
}

func randomWait(minTimeSec int, maxTimeSec int) {
	time.Sleep(time.Duration(rand.Intn(maxTimeSec-minTimeSec)+minTimeSec) * time.Second)
}

func sanitizeMail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// tokenClaimsFromContext returns the claims stored by the access token middleware.
func tokenClaimsFromContext(c *gin.Context) (*jwthandling.AccessTokenClaims, bool) {
	tokenValue, exists := c.Get("validatedToken")
	if !exists {
		return nil, false
	}
	claims, ok := tokenValue.(*jwthandling.AccessTokenClaims)
	return claims, ok
}

// writeErrorResponse maps the typed errors of the identity packages onto HTTP status
// codes without leaking internals.
func writeErrorResponse(c *gin.Context, err error) {
	var notFound *apperrors.NotFoundError
	var alreadyExists *apperrors.AlreadyExistsError
	var invalidSecret *apperrors.InvalidSecretError
	var invalidResetToken *apperrors.InvalidResetTokenError
	var resetTokenExpired *apperrors.ResetTokenExpiredError
	var precondition *apperrors.PreconditionFailedError
	var stillReferenced *apperrors.StillReferencedError
	var unauthorized *apperrors.UnauthorizedError
	var malformed *apperrors.MalformedTokenError
	var unsupported *apperrors.UnsupportedOperationError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &alreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &invalidSecret), errors.As(err, &unauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &invalidResetToken), errors.As(err, &resetTokenExpired), errors.As(err, &malformed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &precondition), errors.As(err, &stillReferenced):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &unsupported):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
