package apihandlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	mw "github.com/julb/iam-backend/pkg/apihelpers/middlewares"

	"github.com/julb/iam-backend/pkg/identity/secrets"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
	"github.com/julb/iam-backend/pkg/messaging"
	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

func (h *HttpEndpoints) AddIdentityAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	authGroup.Use(h.tenantGuard())
	{
		authGroup.POST("/signup", mw.RequirePayload(), h.signup)
		authGroup.POST("/login", mw.RequirePayload(), h.login)
		authGroup.POST("/mfa/verify", mw.RequirePayload(), h.verifyMfaCode)
		authGroup.POST("/token", mw.RequirePayload(), h.exchangeIDToken)
		authGroup.POST("/logout", mw.RequirePayload(), h.logout)
		authGroup.POST("/verify-device", mw.RequirePayload(), h.verifyDevice)
		authGroup.POST("/resend-device-verification", mw.RequirePayload(), h.resendDeviceVerification)
		authGroup.POST("/logout-all", mw.GetAndValidateAccessToken(), h.logoutAll)
	}
}

// tenantGuard rejects requests for tenants this deployment does not serve.
func (h *HttpEndpoints) tenantGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("tenantID")
		if !h.isTenantAllowed(tenantID) {
			slog.Warn("tenant not allowed", slog.String("tenantID", tenantID))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid tenant id"})
			c.Abort()
		}
	}
}

type SignupReq struct {
	Mail        string `json:"mail"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Locale      string `json:"locale"`
}

func (h *HttpEndpoints) signup(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req SignupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mail == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	req.Mail = sanitizeMail(req.Mail)

	user, err := h.accountRegistry.Signup(tenantID, req.Mail, req.Password, idTypes.Profile{
		DisplayName: req.DisplayName,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	}, req.Locale)
	if err != nil {
		slog.Warn("signup failed", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		writeErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type LoginReq struct {
	Mail           string `json:"mail"`
	Secret         string `json:"secret"`
	CredentialType string `json:"credentialType"`
}

func (h *HttpEndpoints) login(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req LoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mail == "" || req.Secret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	credentialType := idTypes.CredentialType(req.CredentialType)
	if credentialType == "" {
		credentialType = idTypes.CREDENTIAL_TYPE_PASSWORD
	}
	if credentialType != idTypes.CREDENTIAL_TYPE_PASSWORD && credentialType != idTypes.CREDENTIAL_TYPE_PINCODE {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported credential type"})
		return
	}

	req.Mail = sanitizeMail(req.Mail)

	user, err := h.identityDBConn.GetUserByDeviceAddress(tenantID, idTypes.RECOVERY_DEVICE_TYPE_MAIL, req.Mail)
	if err != nil {
		slog.Warn("login attempt with unknown mail address", slog.String("tenantID", tenantID))
		randomWait(5, 10)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if user.AccountLocked {
		slog.Warn("login attempt on locked account", slog.String("tenantID", tenantID), slog.String("userID", user.UserID))
		randomWait(5, 10)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	credential, err := h.credentialStore.VerifySingletonSecret(tenantID, user.UserID, credentialType, req.Secret)
	if err != nil {
		slog.Warn("login attempt with wrong secret", slog.String("tenantID", tenantID), slog.String("userID", user.UserID))
		randomWait(5, 10)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	mfaRequired := credential.MfaEnabled

	creation, err := h.sessionManager.Create(tenantID, user.UserID, h.sessionTTL, !mfaRequired)
	if err != nil {
		slog.Error("failed to create session", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	user.Timestamps.LastLogin = time.Now().Unix()
	if _, err := h.identityDBConn.ReplaceUser(tenantID, user); err != nil {
		slog.Error("failed to update last login", slog.String("error", err.Error()))
	}

	resp := gin.H{
		"idToken":          creation.IDToken,
		"idTokenExpiresAt": creation.Session.ExpiresAt,
		"mfaRequired":      mfaRequired,
	}

	if !mfaRequired {
		tokenResp, err := h.sessionManager.AccessTokenFromIDToken(tenantID, creation.IDToken)
		if err != nil {
			slog.Error("failed to mint access token", slog.String("error", err.Error()))
			writeErrorResponse(c, err)
			return
		}
		resp["token"] = tokenResp
	}

	c.JSON(http.StatusOK, resp)
}

type MfaVerifyReq struct {
	IDToken string `json:"idToken"`
	Code    string `json:"code"`
}

func (h *HttpEndpoints) verifyMfaCode(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req MfaVerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.IDToken == "" || req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	sessionID, userID, err := secrets.ParseCompositeToken(req.IDToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	session, err := h.identityDBConn.GetSession(tenantID, sessionID)
	if err != nil || session.UserID != userID {
		randomWait(5, 10)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}

	if _, err := h.credentialStore.VerifyTotpCode(tenantID, userID, req.Code); err != nil {
		slog.Warn("second factor check failed", slog.String("tenantID", tenantID), slog.String("userID", userID))
		randomWait(5, 10)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if err := h.sessionManager.MarkMfaVerified(tenantID, userID, sessionID); err != nil {
		writeErrorResponse(c, err)
		return
	}

	tokenResp, err := h.sessionManager.AccessTokenFromIDToken(tenantID, req.IDToken)
	if err != nil {
		writeErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResp)
}

type TokenExchangeReq struct {
	IDToken string `json:"idToken"`
}

func (h *HttpEndpoints) exchangeIDToken(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req TokenExchangeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokenResp, err := h.sessionManager.AccessTokenFromIDToken(tenantID, req.IDToken)
	if err != nil {
		slog.Warn("token exchange rejected", slog.String("tenantID", tenantID))
		randomWait(2, 5)
		writeErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResp)
}

func (h *HttpEndpoints) logout(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req TokenExchangeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID, userID, err := secrets.ParseCompositeToken(req.IDToken)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}

	if err := h.sessionManager.Delete(tenantID, userID, sessionID); err != nil {
		slog.Debug("logout for unknown session", slog.String("tenantID", tenantID))
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *HttpEndpoints) logoutAll(c *gin.Context) {
	tenantID := c.Param("tenantID")

	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	count, err := h.sessionManager.DeleteAll(tenantID, claims.Subject)
	if err != nil {
		slog.Error("failed to delete sessions", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedSessions": count})
}

type VerifyDeviceReq struct {
	UserID   string `json:"userID"`
	DeviceID string `json:"deviceID"`
	Token    string `json:"token"`
}

func (h *HttpEndpoints) verifyDevice(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req VerifyDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" || req.DeviceID == "" || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	user, err := h.accountRegistry.ConfirmDevice(tenantID, req.UserID, req.DeviceID, req.Token)
	if err != nil {
		slog.Warn("device verification rejected", slog.String("tenantID", tenantID))
		randomWait(2, 5)
		writeErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

type ResendDeviceVerificationReq struct {
	Mail string `json:"mail"`
}

func (h *HttpEndpoints) resendDeviceVerification(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req ResendDeviceVerificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Mail = sanitizeMail(req.Mail)

	// The response does not reveal whether the address is known.
	user, err := h.identityDBConn.GetUserByDeviceAddress(tenantID, idTypes.RECOVERY_DEVICE_TYPE_MAIL, req.Mail)
	if err == nil {
		if messaging.HasRecentlySent(tenantID, user.UserID, messagingTypes.NOTIFICATION_TYPE_DEVICE_VERIFICATION, time.Minute) {
			slog.Debug("verification resend throttled", slog.String("tenantID", tenantID), slog.String("userID", user.UserID))
		} else if device, ok := user.FindRecoveryDeviceByTypeAndAddr(idTypes.RECOVERY_DEVICE_TYPE_MAIL, req.Mail); ok && !device.Verified() {
			if err := h.accountRegistry.TriggerDeviceVerification(tenantID, user.UserID, device.ID.Hex()); err != nil {
				slog.Error("failed to trigger device verification", slog.String("error", err.Error()))
			}
		}
	}
	randomWait(1, 3)
	c.JSON(http.StatusOK, gin.H{"message": "verification message sent if the address is registered"})
}
