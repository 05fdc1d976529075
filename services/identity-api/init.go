package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/julb/iam-backend/pkg/apihelpers"
	"github.com/julb/iam-backend/pkg/db"
	"github.com/julb/iam-backend/pkg/events"
	httpclient "github.com/julb/iam-backend/pkg/http-client"
	"github.com/julb/iam-backend/pkg/identity/accounts"
	"github.com/julb/iam-backend/pkg/identity/credentials"
	"github.com/julb/iam-backend/pkg/identity/pwhash"
	"github.com/julb/iam-backend/pkg/identity/recovery"
	"github.com/julb/iam-backend/pkg/identity/sessions"
	jwthandling "github.com/julb/iam-backend/pkg/jwt-handling"
	"github.com/julb/iam-backend/pkg/messaging"
	messagingTypes "github.com/julb/iam-backend/pkg/messaging/types"
	"github.com/julb/iam-backend/pkg/utils"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"
	messagingDB "github.com/julb/iam-backend/pkg/db/messaging"
	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_IDENTITY_DB_USERNAME  = "IDENTITY_DB_USERNAME"
	ENV_IDENTITY_DB_PASSWORD  = "IDENTITY_DB_PASSWORD"
	ENV_MESSAGING_DB_USERNAME = "MESSAGING_DB_USERNAME"
	ENV_MESSAGING_DB_PASSWORD = "MESSAGING_DB_PASSWORD"

	ENV_SMTP_BRIDGE_API_KEY = "SMTP_BRIDGE_API_KEY"
	ENV_SMS_GATEWAY_API_KEY = "SMS_GATEWAY_API_KEY"

	ENV_ACCESS_TOKEN_SIGN_KEY_PATH = "ACCESS_TOKEN_SIGN_KEY_PATH"
	ENV_ACCESS_TOKEN_EXPIRES_IN    = "ACCESS_TOKEN_EXPIRES_IN"
)

type TenantSettings struct {
	RecoveryChannels []string      `json:"recovery_channels" yaml:"recovery_channels"`
	ResetTokenTTL    time.Duration `json:"reset_token_ttl" yaml:"reset_token_ttl"`
}

type IdentityApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	// identity configs
	IdentityConfig struct {
		PWHashing struct {
			Argon2Memory      uint32 `json:"argon2_memory" yaml:"argon2_memory"`
			Argon2Iterations  uint32 `json:"argon2_iterations" yaml:"argon2_iterations"`
			Argon2Parallelism uint8  `json:"argon2_parallelism" yaml:"argon2_parallelism"`
		} `json:"pw_hashing" yaml:"pw_hashing"`

		AccessTokenConfig struct {
			SignKeyPath string        `json:"sign_key_path" yaml:"sign_key_path"`
			Issuer      string        `json:"issuer" yaml:"issuer"`
			Audience    string        `json:"audience" yaml:"audience"`
			ExpiresIn   time.Duration `json:"expires_in" yaml:"expires_in"`
		} `json:"access_token_config" yaml:"access_token_config"`

		SessionTTL     time.Duration `json:"session_ttl" yaml:"session_ttl"`
		VerifyTokenTTL time.Duration `json:"verify_token_ttl" yaml:"verify_token_ttl"`

		TotpIssuer      string `json:"totp_issuer" yaml:"totp_issuer"`
		TotpWindowSteps int    `json:"totp_window_steps" yaml:"totp_window_steps"`

		TenantDefaults TenantSettings            `json:"tenant_defaults" yaml:"tenant_defaults"`
		TenantConfigs  map[string]TenantSettings `json:"tenant_configs" yaml:"tenant_configs"`
	} `json:"identity_config" yaml:"identity_config"`

	AllowedTenantIDs []string `json:"allowed_tenant_ids" yaml:"allowed_tenant_ids"`

	// DB configs
	DBConfigs struct {
		IdentityDB  db.DBConfigYaml `json:"identity_db" yaml:"identity_db"`
		MessagingDB db.DBConfigYaml `json:"messaging_db" yaml:"messaging_db"`
	} `json:"db_configs" yaml:"db_configs"`

	MessagingConfigs messagingTypes.MessagingConfigs `json:"messaging_configs" yaml:"messaging_configs"`
}

var (
	identityDBService  *identityDB.IdentityDBService
	messagingDBService *messagingDB.MessagingDBService

	credentialStore *credentials.Store
	recoveryFlow    *recovery.Flow
	sessionManager  *sessions.Manager
	accountRegistry *accounts.Registry
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
	)

	// Override secrets from environment variables
	secretsOverride()

	// Init DBs
	initDBs()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// init argon2
	pwhash.InitArgonParams(
		conf.IdentityConfig.PWHashing.Argon2Memory,
		conf.IdentityConfig.PWHashing.Argon2Iterations,
		conf.IdentityConfig.PWHashing.Argon2Parallelism,
	)

	if err := jwthandling.InitAccessTokenSigning(conf.IdentityConfig.AccessTokenConfig.SignKeyPath); err != nil {
		panic(err)
	}

	initMessageSendingConfig()

	initIdentityServices()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_IDENTITY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.IdentityDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_IDENTITY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.IdentityDB.Password = dbPassword
	}

	if dbUsername := os.Getenv(ENV_MESSAGING_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.MessagingDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_MESSAGING_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.MessagingDB.Password = dbPassword
	}

	if apiKey := os.Getenv(ENV_SMTP_BRIDGE_API_KEY); apiKey != "" {
		conf.MessagingConfigs.SmtpBridgeConfig.APIKey = apiKey
	}

	if smsGatewayAPIKey := os.Getenv(ENV_SMS_GATEWAY_API_KEY); smsGatewayAPIKey != "" {
		if conf.MessagingConfigs.SMSGatewayConfig == nil {
			conf.MessagingConfigs.SMSGatewayConfig = &messagingTypes.SMSGatewayConfig{}
		}
		conf.MessagingConfigs.SMSGatewayConfig.APIKey = smsGatewayAPIKey
	}

	if signKeyPath := os.Getenv(ENV_ACCESS_TOKEN_SIGN_KEY_PATH); signKeyPath != "" {
		conf.IdentityConfig.AccessTokenConfig.SignKeyPath = signKeyPath
	}

	if expInVal := os.Getenv(ENV_ACCESS_TOKEN_EXPIRES_IN); expInVal != "" {
		expIn, err := utils.ParseDurationString(expInVal)
		if err != nil {
			panic(err)
		}
		conf.IdentityConfig.AccessTokenConfig.ExpiresIn = expIn
	}
}

func initDBs() {
	var err error
	identityDBService, err = identityDB.NewIdentityDBService(db.DBConfigFromYamlObj(conf.DBConfigs.IdentityDB, conf.AllowedTenantIDs))
	if err != nil {
		slog.Error("Error connecting to Identity DB", slog.String("error", err.Error()))
		return
	}

	messagingDBService, err = messagingDB.NewMessagingDBService(db.DBConfigFromYamlObj(conf.DBConfigs.MessagingDB, conf.AllowedTenantIDs))
	if err != nil {
		slog.Error("Error connecting to Messaging DB", slog.String("error", err.Error()))
		return
	}
}

func initMessageSendingConfig() {
	messaging.Init(
		loadSmtpBridgeHTTPConfig(),
		conf.MessagingConfigs.SMSGatewayConfig,
		conf.MessagingConfigs.GlobalTemplateConstants,
		messagingDBService,
	)
}

func loadSmtpBridgeHTTPConfig() *httpclient.ClientConfig {
	return &httpclient.ClientConfig{
		RootURL: conf.MessagingConfigs.SmtpBridgeConfig.URL,
		APIKey:  conf.MessagingConfigs.SmtpBridgeConfig.APIKey,
		Timeout: conf.MessagingConfigs.SmtpBridgeConfig.RequestTimeout,
	}
}

func initIdentityServices() {
	events.Init(identityDBService)

	credentialStore = credentials.NewStore(
		identityDBService,
		conf.IdentityConfig.TotpIssuer,
		conf.IdentityConfig.TotpWindowSteps,
	)

	recoveryFlow = recovery.NewFlow(
		identityDBService,
		credentialStore,
		tenantRecoveryConfig,
	)

	sessionManager = sessions.NewManager(
		identityDBService,
		conf.IdentityConfig.AccessTokenConfig.Issuer,
		conf.IdentityConfig.AccessTokenConfig.Audience,
		conf.IdentityConfig.AccessTokenConfig.ExpiresIn,
	)

	accountRegistry = accounts.NewRegistry(
		identityDBService,
		credentialStore,
		conf.IdentityConfig.VerifyTokenTTL,
	)
}

// tenantRecoveryConfig resolves the per-tenant settings, falling back to the defaults.
func tenantRecoveryConfig(tenantID string) recovery.TenantConfig {
	settings, ok := conf.IdentityConfig.TenantConfigs[tenantID]
	if !ok {
		settings = conf.IdentityConfig.TenantDefaults
	}
	if len(settings.RecoveryChannels) == 0 {
		settings.RecoveryChannels = []string{idTypes.RECOVERY_DEVICE_TYPE_MAIL}
	}
	if settings.ResetTokenTTL == 0 {
		settings.ResetTokenTTL = time.Hour
	}
	return recovery.TenantConfig{
		EnabledChannels: settings.RecoveryChannels,
		ResetTokenTTL:   settings.ResetTokenTTL,
	}
}
