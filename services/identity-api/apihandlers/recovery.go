package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/julb/iam-backend/pkg/apihelpers/middlewares"

	"github.com/julb/iam-backend/pkg/identity/recovery"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func (h *HttpEndpoints) AddRecoveryAPI(rg *gin.RouterGroup) {
	recoveryGroup := rg.Group("/recovery")
	recoveryGroup.Use(h.tenantGuard())
	{
		recoveryGroup.POST("/channels", mw.RequirePayload(), h.listRecoveryChannels)
		recoveryGroup.POST("/trigger", mw.RequirePayload(), h.triggerReset)
		recoveryGroup.POST("/consume", mw.RequirePayload(), h.consumeReset)
	}
}

type RecoveryChannelsReq struct {
	Mail string `json:"mail"`
}

// listRecoveryChannels responds with an empty list for unknown addresses so the
// endpoint cannot be used to probe for accounts.
func (h *HttpEndpoints) listRecoveryChannels(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req RecoveryChannelsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Mail = sanitizeMail(req.Mail)

	user, err := h.identityDBConn.GetUserByDeviceAddress(tenantID, idTypes.RECOVERY_DEVICE_TYPE_MAIL, req.Mail)
	if err != nil {
		randomWait(1, 3)
		c.JSON(http.StatusOK, gin.H{"channels": []recovery.Channel{}})
		return
	}

	channels, err := h.recoveryFlow.ListChannels(tenantID, user.UserID)
	if err != nil {
		randomWait(1, 3)
		c.JSON(http.StatusOK, gin.H{"channels": []recovery.Channel{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

type TriggerResetReq struct {
	Mail           string `json:"mail"`
	DeviceID       string `json:"deviceID"`
	CredentialType string `json:"credentialType"`
}

func (h *HttpEndpoints) triggerReset(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req TriggerResetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mail == "" || req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	credentialType := idTypes.CredentialType(req.CredentialType)
	if credentialType == "" {
		credentialType = idTypes.CREDENTIAL_TYPE_PASSWORD
	}

	req.Mail = sanitizeMail(req.Mail)

	// Always respond the same way so the endpoint cannot reveal account existence.
	user, err := h.identityDBConn.GetUserByDeviceAddress(tenantID, idTypes.RECOVERY_DEVICE_TYPE_MAIL, req.Mail)
	if err == nil {
		if err := h.recoveryFlow.TriggerReset(tenantID, user.UserID, req.DeviceID, credentialType, user.UserID); err != nil {
			slog.Warn("reset trigger failed", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
		}
	}
	randomWait(1, 3)
	c.JSON(http.StatusOK, gin.H{"message": "reset message sent if the address is registered"})
}

type ConsumeResetReq struct {
	Mail           string `json:"mail"`
	CredentialType string `json:"credentialType"`
	Token          string `json:"token"`
	NewSecret      string `json:"newSecret"`
}

func (h *HttpEndpoints) consumeReset(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var req ConsumeResetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Mail == "" || req.Token == "" || req.NewSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	credentialType := idTypes.CredentialType(req.CredentialType)
	if credentialType == "" {
		credentialType = idTypes.CREDENTIAL_TYPE_PASSWORD
	}

	req.Mail = sanitizeMail(req.Mail)

	user, err := h.identityDBConn.GetUserByDeviceAddress(tenantID, idTypes.RECOVERY_DEVICE_TYPE_MAIL, req.Mail)
	if err != nil {
		randomWait(2, 5)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reset token"})
		return
	}

	if err := h.recoveryFlow.ConsumeReset(tenantID, user.UserID, credentialType, req.Token, req.NewSecret, user.UserID); err != nil {
		slog.Warn("reset consumption rejected", slog.String("tenantID", tenantID), slog.String("userID", user.UserID))
		randomWait(2, 5)
		writeErrorResponse(c, err)
		return
	}

	// invalidate existing sessions after a reset
	if _, err := h.sessionManager.DeleteAll(tenantID, user.UserID); err != nil {
		slog.Error("failed to delete sessions after reset", slog.String("error", err.Error()))
	}

	c.JSON(http.StatusOK, gin.H{"message": "secret updated"})
}
