package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes realtime events onto per-user Redis channels. The socket
// gateway subscribes to user:<id>:events and forwards payloads to connected
// clients.
type Publisher struct {
	client *redis.Client
}

// Option tweaks the underlying redis client options.
type Option func(*redis.Options)

func WithPassword(password string) Option {
	return func(o *redis.Options) {
		o.Password = password
	}
}

func WithDB(db int) Option {
	return func(o *redis.Options) {
		o.DB = db
	}
}

// NewPublisher connects to Redis at addr. An empty addr yields a disabled
// publisher whose Emit calls are no-ops, so deployments without a socket
// gateway need no special casing.
func NewPublisher(addr string, options ...Option) *Publisher {
	if addr == "" {
		return &Publisher{}
	}
	opts := &redis.Options{Addr: addr}
	for _, option := range options {
		option(opts)
	}
	return &Publisher{client: redis.NewClient(opts)}
}

// Enabled reports whether a Redis connection is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Emit publishes the payload as JSON onto the user's event channel.
func (p *Publisher) Emit(ctx context.Context, userID, event string, payload any) error {
	if !p.Enabled() {
		return nil
	}
	body, err := json.Marshal(map[string]any{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(userID), body).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Channel returns the per-user pub/sub channel name.
func Channel(userID string) string {
	return "user:" + userID + ":events"
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.client.Close()
}
