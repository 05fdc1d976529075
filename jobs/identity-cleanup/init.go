package main

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/julb/iam-backend/pkg/db"
	"github.com/julb/iam-backend/pkg/utils"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_IDENTITY_DB_USERNAME = "IDENTITY_DB_USERNAME"
	ENV_IDENTITY_DB_PASSWORD = "IDENTITY_DB_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		IdentityDB db.DBConfigYaml `json:"identity_db" yaml:"identity_db"`
	} `json:"db_configs" yaml:"db_configs"`

	TenantIDs []string `json:"tenant_ids" yaml:"tenant_ids"`

	CleanupConfig struct {
		DeleteUnverifiedUsersAfter time.Duration `json:"delete_unverified_users_after" yaml:"delete_unverified_users_after"`
		SessionGracePeriod         time.Duration `json:"session_grace_period" yaml:"session_grace_period"`
	} `json:"cleanup_config" yaml:"cleanup_config"`

	RunTasks struct {
		DeleteExpiredSessions   bool `json:"delete_expired_sessions" yaml:"delete_expired_sessions"`
		ClearExpiredResetTokens bool `json:"clear_expired_reset_tokens" yaml:"clear_expired_reset_tokens"`
		CleanUpUnverifiedUsers  bool `json:"clean_up_unverified_users" yaml:"clean_up_unverified_users"`
	} `json:"run_tasks" yaml:"run_tasks"`
}

var conf config

var identityDBService *identityDB.IdentityDBService

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

	// check config values:
	if conf.RunTasks.CleanUpUnverifiedUsers && conf.CleanupConfig.DeleteUnverifiedUsersAfter == 0 {
		slog.Error("DeleteUnverifiedUsersAfter is not set")
		panic("DeleteUnverifiedUsersAfter is not set")
	}

	identityDBService, err = identityDB.NewIdentityDBService(db.DBConfigFromYamlObj(conf.DBConfigs.IdentityDB, conf.TenantIDs))
	if err != nil {
		slog.Error("Error connecting to Identity DB", slog.String("error", err.Error()))
		panic(err)
	}
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_IDENTITY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.IdentityDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_IDENTITY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.IdentityDB.Password = dbPassword
	}
}
