package worker

import (
	"context"
	"encoding/json"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/internal/jobs"
	"github.com/garnizeh/talentmatch/pkg/models"
)

// JobHandler adapts the dispatcher to the job queue. Envelopes are checked
// and decoded in order; a bad one stops the batch at its index after the
// envelopes before it have been applied.
func (d *Dispatcher[T, I, C]) JobHandler() jobs.BatchHandler {
	return func(ctx context.Context, batch []*jobs.Job) (int, error) {
		envs := make([]models.Envelope, 0, len(batch))
		var decodeErr error
		for _, j := range batch {
			if err := CheckEnvelope(ctx, j.Payload); err != nil {
				decodeErr = err
				break
			}
			var env models.Envelope
			if err := json.Unmarshal(j.Payload, &env); err != nil {
				decodeErr = apperr.User("worker.decode", "invalid envelope: "+err.Error())
				break
			}
			envs = append(envs, env)
		}

		n, err := d.HandleBatch(ctx, envs)
		if err != nil {
			return n, err
		}
		return n, decodeErr
	}
}
