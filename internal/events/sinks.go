package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"
)

// Sink forwards an event outside the process.
type Sink interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// WebhookSink POSTs events as JSON to a fixed URL.
type WebhookSink struct {
	url    string
	client *resty.Client
}

// NewWebhookSink builds a webhook sink with bounded timeout and retries.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &WebhookSink{url: url, client: client}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Send(ctx context.Context, event Event) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("X-Event-Type", string(event.Type)).
		SetBody(event).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook responded %d", resp.StatusCode())
	}
	return nil
}

// Publisher is the subset of the redis client used by RedisSink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events on a redis pub/sub channel.
type RedisSink struct {
	client  Publisher
	channel string
}

// NewRedisSink builds a redis sink.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}
