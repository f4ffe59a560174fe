package jobs

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Sender enqueues envelopes as jobs whose type is the queue name.
type Sender struct {
	repo        *Repository
	queue       string
	maxAttempts int
}

var _ repository.Queue = (*Sender)(nil)

func NewSender(repo *Repository, queue string, maxAttempts int) *Sender {
	return &Sender{repo: repo, queue: queue, maxAttempts: maxAttempts}
}

// Send stores env and returns the job id.
func (s *Sender) Send(ctx context.Context, env models.Envelope) (string, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	id, err := s.repo.Enqueue(ctx, &Job{Type: s.queue, Payload: b, Priority: 100, MaxAttempts: s.maxAttempts, ScheduledAt: time.Now()})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}
