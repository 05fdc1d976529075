package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/julb/iam-backend/pkg/apihelpers"
	"github.com/julb/iam-backend/services/identity-api/apihandlers"
)

var conf IdentityApiConfig

func main() {
	if identityDBService == nil || messagingDBService == nil {
		slog.Error("DB connections not available")
		return
	}

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     conf.GinConfig.AllowOrigins,
		AllowMethods:     []string{"POST", "GET", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "Api-Key"},
		ExposeHeaders:    []string{"Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	v1Root := router.Group("/v1")
	tenantRoot := v1Root.Group("/t/:tenantID")

	v1APIHandlers := apihandlers.NewHTTPHandler(
		identityDBService,
		messagingDBService,
		credentialStore,
		recoveryFlow,
		sessionManager,
		accountRegistry,
		conf.AllowedTenantIDs,
		conf.IdentityConfig.SessionTTL,
	)
	v1APIHandlers.AddIdentityAuthAPI(tenantRoot)
	v1APIHandlers.AddCredentialManagementAPI(tenantRoot)
	v1APIHandlers.AddRecoveryAPI(tenantRoot)
	v1APIHandlers.AddUserManagementAPI(tenantRoot)
	v1APIHandlers.AddNotificationTemplatesAPI(tenantRoot)

	if conf.GinConfig.DebugMode {
		apihelpers.WriteRoutesToFile(router, "identity-api-routes.txt")
	}

	// Start the server
	slog.Info("Starting Identity API on port " + conf.GinConfig.Port)
	if !conf.GinConfig.MTLS.Use {
		err := router.Run(":" + conf.GinConfig.Port)
		if err != nil {
			slog.Error("Exited Identity API", slog.String("error", err.Error()))
			return
		}
	} else {
		// Create tls config for mutual TLS
		tlsConfig, err := apihelpers.LoadTLSConfig(conf.GinConfig.MTLS.CertificatePaths)
		if err != nil {
			slog.Error("Error loading TLS config.", slog.String("error", err.Error()))
			return
		}

		server := &http.Server{
			Addr:      ":" + conf.GinConfig.Port,
			Handler:   router,
			TLSConfig: tlsConfig,
		}

		err = server.ListenAndServeTLS(conf.GinConfig.MTLS.CertificatePaths.ServerCertPath, conf.GinConfig.MTLS.CertificatePaths.ServerKeyPath)
		if err != nil {
			slog.Error("Exited Identity API", slog.String("error", err.Error()))
			return
		}
	}
}
