package worker

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/talentmatch/internal/apperr"
)

// envelopeSchema describes a queue message. operation may be absent, in
// which case the message is handled as a match request.
const envelopeSchema = `{
	"type": "object",
	"required": ["payload"],
	"properties": {
		"operation": {"type": "string"},
		"payload": {
			"type": "object",
			"properties": {
				"id": {"type": "string"},
				"segment": {"type": "string"}
			}
		}
	}
}`

var compiledEnvelope = mustSchema(envelopeSchema)

func mustSchema(src string) *jsonschema.Schema {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(src), rs); err != nil {
		panic("compile envelope schema: " + err.Error())
	}
	return rs
}

// CheckEnvelope validates raw against the envelope schema. Violations are
// user errors so the queue layer dead-letters them once attempts run out.
func CheckEnvelope(ctx context.Context, raw []byte) error {
	verrs, err := compiledEnvelope.ValidateBytes(ctx, raw)
	if err != nil {
		return apperr.User("worker.decode", "invalid envelope: "+err.Error())
	}
	if len(verrs) == 0 {
		return nil
	}
	msgs := make([]string, len(verrs))
	for i, e := range verrs {
		msgs[i] = e.PropertyPath + ": " + e.Message
	}
	return apperr.User("worker.decode", "invalid envelope: "+strings.Join(msgs, "; "))
}
