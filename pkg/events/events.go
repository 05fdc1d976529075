package events

import (
	"log/slog"

	"github.com/google/uuid"

	identityDB "github.com/julb/iam-backend/pkg/db/identity"
)

// resource types
const (
	RESOURCE_TYPE_USER       = "user"
	RESOURCE_TYPE_CREDENTIAL = "credential"
	RESOURCE_TYPE_SESSION    = "session"
)

// event types
const (
	EVENT_TYPE_CREATED = "created"
	EVENT_TYPE_UPDATED = "updated"
	EVENT_TYPE_DELETED = "deleted"
)

var identityDBService *identityDB.IdentityDBService

func Init(identityDB *identityDB.IdentityDBService) {
	identityDBService = identityDB
}

// PostResourceEvent publishes an audit event for a resource change. Publication is
// fire and forget: failures are logged, never surfaced to the caller.
func PostResourceEvent(tenantID string, resourceType string, resourceID string, eventType string, actor string) {
	if identityDBService == nil {
		slog.Debug("resource event publishing not initialized")
		return
	}

	go func() {
		err := identityDBService.AddResourceEvent(tenantID, identityDB.ResourceEvent{
			EventID:      uuid.NewString(),
			ResourceType: resourceType,
			ResourceID:   resourceID,
			EventType:    eventType,
			Actor:        actor,
		})
		if err != nil {
			slog.Error("failed to publish resource event",
				slog.String("tenantID", tenantID),
				slog.String("resourceType", resourceType),
				slog.String("resourceID", resourceID),
				slog.String("eventType", eventType),
				slog.String("error", err.Error()))
		}
	}()
}
