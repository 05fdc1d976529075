package apihandlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/julb/iam-backend/pkg/apihelpers/middlewares"
	"github.com/julb/iam-backend/pkg/messaging/templates"
	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
)

// AddNotificationTemplatesAPI exposes template management for other services,
// authenticated by API key.
func (h *HttpEndpoints) AddNotificationTemplatesAPI(rg *gin.RouterGroup) {
	templatesGroup := rg.Group("/service/notification-templates")
	templatesGroup.Use(h.tenantGuard())
	templatesGroup.Use(mw.HasValidAPIKey(h.credentialStore))
	{
		templatesGroup.GET("/:messageType/:channel", h.getNotificationTemplate)
		templatesGroup.POST("", mw.RequirePayload(), h.saveNotificationTemplate)
		templatesGroup.DELETE("/:messageType/:channel", h.deleteNotificationTemplate)
	}
}

func (h *HttpEndpoints) getNotificationTemplate(c *gin.Context) {
	tenantID := c.Param("tenantID")
	messageType := c.Param("messageType")
	channel := c.Param("channel")

	template, err := h.messagingDBConn.GetNotificationTemplate(tenantID, messageType, channel)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "template not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": template})
}

func (h *HttpEndpoints) saveNotificationTemplate(c *gin.Context) {
	tenantID := c.Param("tenantID")

	var template messagingTypes.NotificationTemplate
	if err := c.ShouldBindJSON(&template); err != nil {
		slog.Error("error parsing request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing request body"})
		return
	}
	if template.MessageType == "" || template.Channel == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}
	if template.Channel != messagingTypes.CHANNEL_MAIL && template.Channel != messagingTypes.CHANNEL_SMS {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported channel"})
		return
	}

	if err := templates.CheckAllTranslationsParsable(template.Translations, template.MessageType); err != nil {
		slog.Error("error parsing template", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error while checking template validity"})
		return
	}

	slog.Info("saving notification template",
		slog.String("tenantID", tenantID),
		slog.String("messageType", template.MessageType),
		slog.String("channel", template.Channel))

	savedTemplate, err := h.messagingDBConn.SaveNotificationTemplate(tenantID, template)
	if err != nil {
		slog.Error("error saving notification template", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error saving notification template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": savedTemplate})
}

func (h *HttpEndpoints) deleteNotificationTemplate(c *gin.Context) {
	tenantID := c.Param("tenantID")
	messageType := c.Param("messageType")
	channel := c.Param("channel")

	if err := h.messagingDBConn.DeleteNotificationTemplate(tenantID, messageType, channel); err != nil {
		slog.Error("error deleting notification template", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error deleting notification template"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "template deleted"})
}
