package repository

import (
	"context"

	"github.com/garnizeh/talentmatch/pkg/models"
)

// Ports consumed by the persistence and matching core. These are the public
// contracts; concrete implementations live under internal/.

// Record is a storable entity addressed by its Key.
type Record interface {
	Key() models.Key
}

// UpdateSpec lists the document fields an Update writes.
type UpdateSpec []string

// Query selects counterpart records. PartitionPredicate is an equality on
// the partition key; FilterExpression is evaluated per record. Both refer to
// values through ":name" placeholders resolved from Bindings.
type Query struct {
	PartitionPredicate string
	FilterExpression   string
	Bindings           map[string]string
}

// Store persists one entity type. Get and Delete return nil, nil when the key
// is absent.
type Store[T Record] interface {
	Get(ctx context.Context, key models.Key) (*T, error)
	Put(ctx context.Context, item T) (*T, error)
	Update(ctx context.Context, key models.Key, spec UpdateSpec, values T) (*T, error)
	Delete(ctx context.Context, key models.Key) (*T, error)
	Query(ctx context.Context, q Query) ([]T, error)
}

// Queue accepts envelopes for asynchronous processing and returns a message id.
// Consumers receive envelopes at least once.
type Queue interface {
	Send(ctx context.Context, env models.Envelope) (string, error)
}

// Publisher delivers a message body to subscribers of subject.
type Publisher interface {
	Publish(ctx context.Context, subject, body string) (string, error)
}
