package port

import (
	"context"

	"github.com/garyjia/promotion-approval/internal/domain/event"
)

// EventPublisher hands domain events to subscribers such as notification senders
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}
