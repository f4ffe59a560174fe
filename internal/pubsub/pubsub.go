// Package pubsub publishes match summaries. Redis and NATS are supported; the
// log driver only writes them to the logger and is meant for development.
package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Driver names accepted by Open.
const (
	DriverRedis = "redis"
	DriverNATS  = "nats"
	DriverLog   = "log"
)

// Publisher is a repository.Publisher that holds a connection.
type Publisher interface {
	repository.Publisher
	Close() error
}

// Open connects the publisher for driver.
func Open(ctx context.Context, driver, url string, logger *slog.Logger) (Publisher, error) {
	switch driver {
	case DriverRedis:
		client, err := NewRedisClient(ctx, url)
		if err != nil {
			return nil, err
		}
		return NewRedisPublisher(client, logger), nil
	case DriverNATS:
		return NewNATSPublisher(NATSConfig{URL: url, Logger: logger})
	case DriverLog, "":
		return NewLogPublisher(logger), nil
	}
	return nil, fmt.Errorf("unknown pubsub driver %q", driver)
}
