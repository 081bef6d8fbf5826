package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/equipment-service/internal/events"
)

// NotificationService forwards committed ticket outcomes to external sinks.
// Sink failures are logged and never reach the operation that produced the
// event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	sinks      []events.Sink
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, sinks ...events.Sink) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		sinks:      sinks,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("status", string(event.Status)),
		zap.String("actor_id", event.Actor.ID))
	for _, sink := range n.sinks {
		if err := sink.Send(ctx, event); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
	return nil
}
