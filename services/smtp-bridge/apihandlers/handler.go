package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	sc "github.com/julb/iam-backend/pkg/smtp-client"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	apiKeys     []string
	smtpClients *sc.SmtpClients
}

func NewHTTPHandler(
	apiKeys []string,
	smtpClients *sc.SmtpClients,
) *HttpEndpoints {
	return &HttpEndpoints{
		apiKeys:     apiKeys,
		smtpClients: smtpClients,
	}
}
