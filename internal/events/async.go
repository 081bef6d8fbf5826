package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// AsyncDispatcher queues events and delivers them to an inner dispatcher on a
// background goroutine so publishers never wait on slow subscribers. When the
// queue is full, or the dispatcher has been stopped, the event is dropped and
// logged.
type AsyncDispatcher struct {
	inner  Dispatcher
	queue  chan Event
	logger *zap.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	done    chan struct{}
}

// NewAsyncDispatcher wraps inner with a bounded queue.
func NewAsyncDispatcher(inner Dispatcher, size int, logger *zap.Logger) *AsyncDispatcher {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		inner:  inner,
		queue:  make(chan Event, size),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish enqueues the event without blocking.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Warn("event dispatcher stopped; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return nil
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers a handler on the inner dispatcher.
func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Start launches the delivery loop.
func (d *AsyncDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	go d.run()
}

// Stop drains queued events and waits for the loop to exit. Publish calls
// after Stop are dropped.
func (d *AsyncDispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()
	if started {
		<-d.done
	}
}

func (d *AsyncDispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		_ = d.inner.Publish(context.Background(), event)
	}
}
