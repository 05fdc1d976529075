package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/julb/iam-backend/pkg/apihelpers/middlewares"

	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

func (h *HttpEndpoints) AddUserManagementAPI(rg *gin.RouterGroup) {
	meGroup := rg.Group("/me")
	meGroup.Use(h.tenantGuard())
	meGroup.Use(mw.GetAndValidateAccessToken())
	{
		meGroup.GET("", h.getOwnUser)
		meGroup.DELETE("", h.deleteOwnAccount)
		meGroup.POST("/devices", mw.RequirePayload(), h.addRecoveryDevice)
		meGroup.DELETE("/devices/:deviceID", h.removeRecoveryDevice)
	}

	// endpoints for other services, authenticated by API key
	serviceGroup := rg.Group("/service")
	serviceGroup.Use(h.tenantGuard())
	serviceGroup.Use(mw.HasValidAPIKey(h.credentialStore))
	{
		serviceGroup.GET("/users/:userID", h.getUserForService)
	}
}

func (h *HttpEndpoints) getOwnUser(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	user, err := h.identityDBConn.GetUser(tenantID, claims.Subject)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *HttpEndpoints) deleteOwnAccount(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	if err := h.accountRegistry.DeleteAccount(tenantID, claims.Subject, claims.Subject); err != nil {
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account deleted"})
}

type AddDeviceReq struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

func (h *HttpEndpoints) addRecoveryDevice(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	var req AddDeviceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type != idTypes.RECOVERY_DEVICE_TYPE_MAIL && req.Type != idTypes.RECOVERY_DEVICE_TYPE_PHONE {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported device type"})
		return
	}
	if req.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	address := req.Address
	if req.Type == idTypes.RECOVERY_DEVICE_TYPE_MAIL {
		address = sanitizeMail(address)
	}

	device, err := h.accountRegistry.AddDevice(tenantID, claims.Subject, req.Type, address)
	if err != nil {
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"device": device})
}

func (h *HttpEndpoints) removeRecoveryDevice(c *gin.Context) {
	tenantID := c.Param("tenantID")
	claims, ok := tokenClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no validated token"})
		return
	}

	if err := h.accountRegistry.RemoveDevice(tenantID, claims.Subject, c.Param("deviceID")); err != nil {
		writeErrorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "device removed"})
}

func (h *HttpEndpoints) getUserForService(c *gin.Context) {
	tenantID := c.Param("tenantID")

	user, err := h.identityDBConn.GetUser(tenantID, c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
