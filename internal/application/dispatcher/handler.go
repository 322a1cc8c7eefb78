package dispatcher

import (
	"context"

	"github.com/garyjia/promotion-approval/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging.
// EventType is empty for catch-all handlers.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// AuditLogHandler writes one structured log line per domain event
func AuditLogHandler(logger Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		keysAndValues := []interface{}{
			"event_type", evt.Type.String(),
			"event_id", evt.ID,
			"request_id", evt.RequestID,
			"correlation_id", evt.CorrelationID,
		}
		for _, key := range []string{event.KeyActorID, event.KeyActorRole, event.KeyStatus, event.KeyNextRole} {
			if v := evt.GetPayloadString(key); v != "" {
				keysAndValues = append(keysAndValues, key, v)
			}
		}
		logger.Info("Domain event", keysAndValues...)
		return nil
	}
}
