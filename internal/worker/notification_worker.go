package worker

import (
	"github.com/spec-kit/equipment-service/internal/events"
	"github.com/spec-kit/equipment-service/internal/service"
)

// StartNotificationWorker registers notification handlers and starts the
// delivery loop. The returned function drains pending events and stops it.
func StartNotificationWorker(notificationService *service.NotificationService, queue *events.AsyncDispatcher) func() {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if queue == nil {
		return func() {}
	}
	queue.Start()
	return queue.Stop
}
