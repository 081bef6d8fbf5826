package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/events"
)

// publishEvent hands a committed outcome to the dispatcher. Delivery is best
// effort and never affects the caller.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(context.WithoutCancel(ctx), event)
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{Type: actor.Type, ID: actor.ID}
}
