package main

import (
	"log/slog"
	"time"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"
)

func main() {
	slog.Info("Starting identity cleanup job")
	start := time.Now()

	if conf.RunTasks.DeleteExpiredSessions {
		deleteExpiredSessions()
	}
	if conf.RunTasks.ClearExpiredResetTokens {
		clearExpiredResetTokens()
	}
	if conf.RunTasks.CleanUpUnverifiedUsers {
		cleanUpUnverifiedUsers()
	}

	slog.Info("Identity cleanup job completed", slog.Duration("duration", time.Since(start)))
}

func deleteExpiredSessions() {
	gracePeriod := conf.CleanupConfig.SessionGracePeriod
	if gracePeriod == 0 {
		gracePeriod = identityDB.SESSION_GRACE_PERIOD * time.Second
	}

	for _, tenantID := range conf.TenantIDs {
		slog.Debug("Start deleting expired sessions", slog.String("tenantID", tenantID))

		count, err := identityDBService.DeleteExpiredSessions(tenantID, time.Now().Add(-gracePeriod))
		if err != nil {
			slog.Error("Error deleting expired sessions", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
			continue
		}
		slog.Info("Deleting expired sessions finished", slog.String("tenantID", tenantID), slog.Int("count", int(count)))
	}
}

func clearExpiredResetTokens() {
	for _, tenantID := range conf.TenantIDs {
		slog.Debug("Start clearing expired reset tokens", slog.String("tenantID", tenantID))

		count, err := identityDBService.ClearExpiredResetTokens(tenantID, time.Now().Unix())
		if err != nil {
			slog.Error("Error clearing expired reset tokens", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
			continue
		}
		slog.Info("Clearing expired reset tokens finished", slog.String("tenantID", tenantID), slog.Int("count", int(count)))
	}
}

func cleanUpUnverifiedUsers() {
	for _, tenantID := range conf.TenantIDs {
		slog.Debug("Start cleaning up unverified users", slog.String("tenantID", tenantID))

		createdBefore := time.Now().Add(-conf.CleanupConfig.DeleteUnverifiedUsersAfter).Unix()
		userIDs, err := identityDBService.FindUnverifiedUserIDs(tenantID, createdBefore)
		if err != nil {
			slog.Error("Error finding unverified users", slog.String("tenantID", tenantID), slog.String("error", err.Error()))
			continue
		}

		count := 0
		for _, userID := range userIDs {
			if _, err := identityDBService.DeleteCredentialsByUserID(tenantID, userID); err != nil {
				slog.Error("Error deleting credentials of unverified user", slog.String("tenantID", tenantID), slog.String("userID", userID), slog.String("error", err.Error()))
				continue
			}
			if _, err := identityDBService.DeleteSessionsByUserID(tenantID, userID); err != nil {
				slog.Error("Error deleting sessions of unverified user", slog.String("tenantID", tenantID), slog.String("userID", userID), slog.String("error", err.Error()))
				continue
			}
			if err := identityDBService.DeleteUser(tenantID, userID); err != nil {
				slog.Error("Error deleting unverified user", slog.String("tenantID", tenantID), slog.String("userID", userID), slog.String("error", err.Error()))
				continue
			}
			count++
		}

		slog.Info("Clean up unverified users finished", slog.String("tenantID", tenantID), slog.Int("count", count))
	}
}
