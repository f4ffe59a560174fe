package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisPublisher publishes on Redis channels named after the topic.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, logger: logger}
}

// Publish sends body on the subject channel. Redis has no message ids, so
// one is generated for the logs.
func (p *RedisPublisher) Publish(ctx context.Context, subject, body string) (string, error) {
	receivers, err := p.client.Publish(ctx, subject, body).Result()
	if err != nil {
		return "", fmt.Errorf("redis publish %s: %w", subject, err)
	}
	id := uuid.NewString()
	p.logger.Debug("published", "subject", subject, "message_id", id, "receivers", receivers)
	return id, nil
}

func (p *RedisPublisher) Close() error { return p.client.Close() }

// Subscription receives messages from Redis channels.
type Subscription struct {
	sub *redis.PubSub
}

// Subscribe subscribes to topics and waits for the server to confirm, so
// messages published after it returns are delivered.
func Subscribe(ctx context.Context, client *redis.Client, topics ...string) (*Subscription, error) {
	sub := client.Subscribe(ctx, topics...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	return &Subscription{sub: sub}, nil
}

// Run calls handle for every message until ctx is done or the subscription
// is closed.
func (s *Subscription) Run(ctx context.Context, handle func(topic, body string)) {
	ch := s.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handle(msg.Channel, msg.Payload)
		}
	}
}

func (s *Subscription) Close() error { return s.sub.Close() }
