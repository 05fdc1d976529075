package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/julb/iam-backend/services/smtp-bridge-emulator/apihandlers"
)

// Environment variables
const (
	ENV_PORT       = "SMTP_BRIDGE_EMULATOR_PORT"
	ENV_API_KEYS   = "SMTP_BRIDGE_EMULATOR_API_KEYS"
	ENV_EMAILS_DIR = "SMTP_BRIDGE_EMULATOR_EMAILS_DIR"
)

// Stand-in for the smtp-bridge during local development: accepts the same
// /send-email calls and writes the messages to disk instead of relaying them.
func main() {
	port := os.Getenv(ENV_PORT)
	if port == "" {
		port = "8090"
	}
	emailsDir := os.Getenv(ENV_EMAILS_DIR)
	if emailsDir == "" {
		emailsDir = "emails"
	}
	apiKeys := []string{}
	if keys := os.Getenv(ENV_API_KEYS); keys != "" {
		apiKeys = strings.Split(keys, ",")
	}

	// Start webserver
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"POST", "GET"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "Api-Key"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Add handlers
	router.GET("/", apihandlers.HealthCheckHandle)
	root := router.Group("/")
	apiModule := apihandlers.NewHTTPHandler(apiKeys, emailsDir)
	apiModule.AddRoutes(root)

	slog.Info("Starting SMTP Bridge emulator API on port " + port)
	err := router.Run(":" + port)
	if err != nil {
		slog.Error("Exited SMTP Bridge emulator API", slog.String("error", err.Error()))
		return
	}
}
