package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/julb/iam-backend/pkg/apihelpers/middlewares"

	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func (h *HttpEndpoints) AddCredentialManagementAPI(rg *gin.RouterGroup) {
	credGroup := rg.Group("/me/credentials")
	credGroup.Use(h.tenantGuard())
	credGroup.Use(mw.GetAndValidateAccessToken())
	{
		credGroup.GET("", h.listCredentials)
		credGroup.POST("/rotate", mw.RequirePayload(), h.rotateSecret)
		credGroup.POST("/pincode", mw.RequirePayload(), h.createPincode)
		credGroup.POST("/totp", mw.RequirePayload(), h.createTotpDevice)
		credGroup.POST("/api-keys", mw.RequirePayload(), h.createApiKey)
		credGroup.POST("/mfa", mw.RequirePayload(), h.setMfaEnabled)
		credGroup.DELETE("/:credentialID", h.deleteCredential)
	}
}

func (h *HttpEndpoints) listCredentials(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	result := gin.H{}
	for _, credentialType := range []idTypes.CredentialType{
		idTypes.CREDENTIAL_TYPE_PASSWORD,
		idTypes.CREDENTIAL_TYPE_PINCODE,
		idTypes.CREDENTIAL_TYPE_TOTP,
		idTypes.CREDENTIAL_TYPE_API_KEY,
	} {
		creds, err := h.credentialStore.ListCredentials(tenantID, claims.Subject, credentialType)
		if err != nil {
			slog.Error("failed to list credentials", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		result[string(credentialType)] = creds
	}
	c.JSON(http.StatusOK, gin.H{"credentials": result})
}

type RotateSecretReq struct {
	CredentialType string `json:"credentialType"`
	CurrentSecret  string `json:"currentSecret"`
	NewSecret      string `json:"newSecret"`
}

func (h *HttpEndpoints) rotateSecret(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	var req RotateSecretReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CurrentSecret == "" || req.NewSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	credentialType := idTypes.CredentialType(req.CredentialType)
	if credentialType == "" {
		credentialType = idTypes.CREDENTIAL_TYPE_PASSWORD
	}

	credential, err := h.credentialStore.RotateSecret(tenantID, claims.Subject, credentialType, req.CurrentSecret, req.NewSecret, claims.Subject)
	if err != nil {
		slog.Warn("secret rotation rejected", slog.String("tenantID", tenantID), slog.String("userID", claims.Subject))
		randomWait(2, 5)
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credential": credential})
}

type CreatePincodeReq struct {
	Pincode string `json:"pincode"`
}

func (h *HttpEndpoints) createPincode(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	var req CreatePincodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Pincode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	credential, err := h.credentialStore.CreateSingletonCredential(tenantID, claims.Subject, idTypes.CREDENTIAL_TYPE_PINCODE, req.Pincode, claims.Subject)
	if err != nil {
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"credential": credential})
}

type CreateTotpDeviceReq struct {
	Name string `json:"name"`
}

func (h *HttpEndpoints) createTotpDevice(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	var req CreateTotpDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	accountLabel := claims.Mail
	if accountLabel == "" {
		accountLabel = claims.Subject
	}

	creation, err := h.credentialStore.CreateTotpDevice(tenantID, claims.Subject, req.Name, accountLabel, claims.Subject)
	if err != nil {
		writeErrorResponse(c, err)
		return
	}

	// raw secret and provisioning URI are only returned here, never again
	c.JSON(http.StatusCreated, gin.H{
		"credential":      creation.Credential,
		"secret":          creation.RawSecret,
		"provisioningUri": creation.ProvisioningURI,
	})
}

type CreateApiKeyReq struct {
	Name string `json:"name"`
}

func (h *HttpEndpoints) createApiKey(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	var req CreateApiKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	creation, err := h.credentialStore.CreateApiKey(tenantID, claims.Subject, req.Name, claims.Subject)
	if err != nil {
		writeErrorResponse(c, err)
		return
	}

	// the raw key is only returned here, never again
	c.JSON(http.StatusCreated, gin.H{
		"credential": creation.Credential,
		"apiKey":     creation.RawKey,
	})
}

type SetMfaReq struct {
	CredentialType string `json:"credentialType"`
	Enabled        *bool  `json:"enabled"`
}

func (h *HttpEndpoints) setMfaEnabled(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	var req SetMfaReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	credentialType := idTypes.CredentialType(req.CredentialType)
	if credentialType == "" {
		credentialType = idTypes.CREDENTIAL_TYPE_PASSWORD
	}

	credential, err := h.credentialStore.SetMfaEnabled(tenantID, claims.Subject, credentialType, *req.Enabled, claims.Subject)
	if err != nil {
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credential": credential})
}

func (h *HttpEndpoints) deleteCredential(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	credentialID := c.Param("credentialID")
	if err := h.credentialStore.Delete(tenantID, claims.Subject, credentialID, claims.Subject); err != nil {
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "credential deleted"})
}
