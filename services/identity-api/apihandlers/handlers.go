package apihandlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"
	messagingDB "github.com/julb/iam-backend/pkg/db/messaging"

	"github.com/julb/iam-backend/pkg/identity/accounts"
	"github.com/julb/iam-backend/pkg/identity/credentials"
	"github.com/julb/iam-backend/pkg/identity/recovery"
	"github.com/julb/iam-backend/pkg/identity/sessions"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	identityDBConn   *identityDB.IdentityDBService
	messagingDBConn  *messagingDB.MessagingDBService
	credentialStore  *credentials.Store
	recoveryFlow     *recovery.Flow
	sessionManager   *sessions.Manager
	accountRegistry  *accounts.Registry
	allowedTenantIDs []string
	sessionTTL       time.Duration
}

func NewHTTPHandler(
	identityDBConn *identityDB.IdentityDBService,
	messagingDBConn *messagingDB.MessagingDBService,
	credentialStore *credentials.Store,
	recoveryFlow *recovery.Flow,
	sessionManager *sessions.Manager,
	accountRegistry *accounts.Registry,
	allowedTenantIDs []string,
	sessionTTL time.Duration,
) *HttpEndpoints {
	return &HttpEndpoints{
		identityDBConn:   identityDBConn,
		messagingDBConn:  messagingDBConn,
		credentialStore:  credentialStore,
		recoveryFlow:     recoveryFlow,
		sessionManager:   sessionManager,
		accountRegistry:  accountRegistry,
		allowedTenantIDs: allowedTenantIDs,
		sessionTTL:       sessionTTL,
	}
}
