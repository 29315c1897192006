// Package redis implements the attempt event bus on go-redis/v9: Pub/Sub for
// live delivery to dashboards, a capped Stream as the durable ordered copy.
package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arbstack/flasharb/internal/domain"
)

const (
	// defaultChannel carries live attempt events over Pub/Sub.
	defaultChannel = "flasharb:attempts"

	// defaultStream is the durable ordered copy of the same events.
	defaultStream = "flasharb:attempts:stream"

	// defaultStreamMaxLen is the approximate maximum stream length,
	// enforced via XADD MAXLEN ~.
	defaultStreamMaxLen int64 = 10000
)

// Config holds connection and naming parameters for the event bus. Channel,
// Stream, and StreamMaxLen fall back to the flasharb defaults when zero, so
// several deployments can share one Redis by namespacing the event names.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool

	Channel      string
	Stream       string
	StreamMaxLen int64
}

// EventBus implements domain.EventBus using Redis Pub/Sub for ephemeral
// delivery and a Redis Stream for durable, ordered delivery.
type EventBus struct {
	rdb     *redis.Client
	channel string
	stream  string
	maxLen  int64
}

// NewEventBus connects to Redis, verifies the connection with a ping, and
// returns the bus. The caller owns the connection and must Close it.
func NewEventBus(ctx context.Context, cfg Config) (*EventBus, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	b := &EventBus{
		rdb:     rdb,
		channel: cfg.Channel,
		stream:  cfg.Stream,
		maxLen:  cfg.StreamMaxLen,
	}
	if b.channel == "" {
		b.channel = defaultChannel
	}
	if b.stream == "" {
		b.stream = defaultStream
	}
	if b.maxLen <= 0 {
		b.maxLen = defaultStreamMaxLen
	}
	return b, nil
}

// Ping checks the Redis connection.
func (b *EventBus) Ping(ctx context.Context) error {
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (b *EventBus) Close() error {
	return b.rdb.Close()
}

// PublishAttempt serializes the event and publishes it to both the Pub/Sub
// channel and the stream. The stream append is the durable write; a Pub/Sub
// delivery with no subscribers is not an error.
func (b *EventBus) PublishAttempt(ctx context.Context, ev domain.AttemptEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal attempt event: %w", err)
	}

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", b.channel, err)
	}

	args := &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", b.stream, err)
	}
	return nil
}

// SubscribeAttempts creates a Pub/Sub subscription for attempt events and
// returns a read-only channel of decoded events. The subscription closes when
// the context is cancelled; the returned channel is closed at that point.
func (b *EventBus) SubscribeAttempts(ctx context.Context) (<-chan domain.AttemptEvent, error) {
	pubsub := b.rdb.Subscribe(ctx, b.channel)

	// Verify the subscription is established before handing out the channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", b.channel, err)
	}

	out := make(chan domain.AttemptEvent, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev domain.AttemptEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// ReadAttemptStream reads up to count events from the durable stream starting
// after lastID. Use "0" to read from the beginning or "$" for new events
// only. It returns the events together with the last stream ID consumed.
func (b *EventBus) ReadAttemptStream(ctx context.Context, lastID string, count int) ([]domain.AttemptEvent, string, error) {
	args := &redis.XReadArgs{
		Streams: []string{b.stream, lastID},
		Count:   int64(count),
	}

	results, err := b.rdb.XRead(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, lastID, nil
		}
		return nil, lastID, fmt.Errorf("redis: stream read %s: %w", b.stream, err)
	}

	var events []domain.AttemptEvent
	nextID := lastID
	for _, s := range results {
		for _, msg := range s.Messages {
			nextID = msg.ID
			raw, ok := msg.Values["payload"]
			if !ok {
				continue
			}
			var data []byte
			switch v := raw.(type) {
			case string:
				data = []byte(v)
			case []byte:
				data = v
			default:
				continue
			}
			var ev domain.AttemptEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				continue
			}
			events = append(events, ev)
		}
	}

	return events, nextID, nil
}

// Compile-time interface check.
var _ domain.EventBus = (*EventBus)(nil)
