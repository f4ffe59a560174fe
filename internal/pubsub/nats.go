package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// ConnectTimeout is the timeout for the initial connection.
	// Default is 5 seconds.
	ConnectTimeout time.Duration

	// Logger for operational logging. If nil, uses slog.Default().
	Logger *slog.Logger
}

func (c NATSConfig) applyDefaults() NATSConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// NATSPublisher publishes on NATS subjects named after the topic. Each
// message carries its id in the Nats-Msg-Id header.
type NATSPublisher struct {
	config NATSConfig
	conn   *nats.Conn
}

func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	config = config.applyDefaults()
	logger := config.Logger
	conn, err := nats.Connect(
		config.URL,
		nats.Timeout(config.ConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", config.URL, err)
	}
	return &NATSPublisher{config: config, conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject, body string) (string, error) {
	id := uuid.NewString()
	msg := nats.NewMsg(subject)
	msg.Header.Set(nats.MsgIdHdr, id)
	msg.Data = []byte(body)
	if err := p.conn.PublishMsg(msg); err != nil {
		return "", fmt.Errorf("nats publish %s: %w", subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return "", fmt.Errorf("nats flush %s: %w", subject, err)
	}
	return id, nil
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
