package match

import (
	"context"
	"log/slog"
	"strings"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Topics match summaries are published on.
const (
	TopicListingMatches = "listing-matches"
	TopicSeekerMatches  = "seeker-matches"
)

// Summarizer is a record that renders itself as one notification line.
type Summarizer interface {
	repository.Record
	Summary() string
}

// Notifier finds the counterparts of a source record of type S in a store of
// C records and publishes a summary when there are any.
type Notifier[S any, C Summarizer] struct {
	name      string
	build     func(S) repository.Query
	store     repository.Store[C]
	publisher repository.Publisher
	topic     string
	logger    *slog.Logger
}

// NewListingNotifier finds listings for seekers.
func NewListingNotifier(store repository.Store[models.Listing], pub repository.Publisher, logger *slog.Logger) *Notifier[models.Seeker, models.Listing] {
	return newNotifier("seeker", ListingsForSeeker, store, pub, TopicListingMatches, logger)
}

// NewSeekerNotifier finds seekers for listings.
func NewSeekerNotifier(store repository.Store[models.Seeker], pub repository.Publisher, logger *slog.Logger) *Notifier[models.Listing, models.Seeker] {
	return newNotifier("listing", SeekersForListing, store, pub, TopicSeekerMatches, logger)
}

func newNotifier[S any, C Summarizer](name string, build func(S) repository.Query, store repository.Store[C], pub repository.Publisher, topic string, logger *slog.Logger) *Notifier[S, C] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier[S, C]{name: name, build: build, store: store, publisher: pub, topic: topic, logger: logger}
}

// Topic is the subject summaries are published on.
func (n *Notifier[S, C]) Topic() string { return n.topic }

// Match runs the counterpart query for src. A non-empty result is published
// as one "id / name / name" line per record. Query and publish failures are
// returned as internal errors; an empty result is not an error.
func (n *Notifier[S, C]) Match(ctx context.Context, src S) ([]C, error) {
	method := "match." + n.name + ".counterparts"

	found, err := n.store.Query(ctx, n.build(src))
	if err != nil {
		return nil, apperr.Internal(method, err)
	}
	if len(found) == 0 {
		n.logger.Debug("no counterparts", "source", n.name, "topic", n.topic)
		return found, nil
	}

	lines := make([]string, 0, len(found))
	for _, c := range found {
		lines = append(lines, c.Summary())
	}
	msgID, err := n.publisher.Publish(ctx, n.topic, strings.Join(lines, "\n"))
	if err != nil {
		return nil, apperr.Internal(method, err)
	}
	n.logger.Info("counterparts published", "source", n.name, "topic", n.topic, "count", len(found), "message_id", msgID)
	return found, nil
}
