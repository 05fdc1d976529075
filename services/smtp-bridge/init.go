package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/julb/iam-backend/pkg/utils"

	sc "github.com/julb/iam-backend/pkg/smtp-client"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SMTP_BRIDGE_API_KEY = "SMTP_BRIDGE_API_KEY"
	ENV_SMTP_USERNAME       = "SMTP_USERNAME"
	ENV_SMTP_PASSWORD       = "SMTP_PASSWORD"

	// Optional separate file for the SMTP server list
	ENV_SMTP_SERVER_CONFIG_PATH = "SMTP_SERVER_CONFIG_PATH"
)

type SmtpBridgeConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`
	} `json:"gin_config" yaml:"gin_config"`

	ApiKeys []string `json:"api_keys" yaml:"api_keys"`

	SMTPServerConfig sc.SmtpServerList `json:"smtp_server_config" yaml:"smtp_server_config"`
}

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

	// Server list can live in a separate file, e.g. when mounted as a secret
	if serverConfigPath := os.Getenv(ENV_SMTP_SERVER_CONFIG_PATH); serverConfigPath != "" {
		if err := conf.SMTPServerConfig.ReadFromFile(serverConfigPath); err != nil {
			panic(err)
		}
	}

	// Override secrets from environment variables
	secretsOverride()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
}

func secretsOverride() {
	if apiKey := os.Getenv(ENV_SMTP_BRIDGE_API_KEY); apiKey != "" {
		conf.ApiKeys = append(conf.ApiKeys, apiKey)
	}

	smtpUsername := os.Getenv(ENV_SMTP_USERNAME)
	smtpPassword := os.Getenv(ENV_SMTP_PASSWORD)
	for i := range conf.SMTPServerConfig.Servers {
		if smtpUsername != "" {
			conf.SMTPServerConfig.Servers[i].SetUsername(smtpUsername)
		}
		if smtpPassword != "" {
			conf.SMTPServerConfig.Servers[i].SetPassword(smtpPassword)
		}
	}
}
