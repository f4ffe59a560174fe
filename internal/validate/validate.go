// Package validate turns create, update and delete payloads into canonical
// records. It performs no I/O. Checks run in a fixed order so that the first
// reported problem is stable: presence of the record and payload, then
// required fields, then tag sets, then enum values.
package validate

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/talentmatch/internal/apperr"
)

const (
	msgNoData       = "no data for this id"
	msgMissing      = "invalid entry on field data, missing information"
	msgMissingField = "invalid entry on field data, missing information about "
	placeholderText = "-"
)

// Clock and id source shared by the entity validators. Zero values use the
// wall clock in UTC and random v4 UUIDs.
type Clock struct {
	Now   func() time.Time
	NewID func() string
}

func (c Clock) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c Clock) id() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

// required fails when v is absent or empty.
func required(method, field string, v *string) error {
	if v == nil || *v == "" {
		return apperr.User(method, msgMissingField+field)
	}
	return nil
}

// mergedRequired fails when an update explicitly empties a required field.
func mergedRequired(method, field string, v *string) error {
	if v != nil && *v == "" {
		return apperr.User(method, msgMissingField+field)
	}
	return nil
}

type tagSet struct {
	field string
	raw   json.RawMessage
	dst   *[]string
}

// decodeTags checks each set in order. An absent set leaves dst untouched;
// a present one must be a JSON array whose elements are all strings.
func decodeTags(method string, sets ...tagSet) error {
	for _, s := range sets {
		if len(s.raw) == 0 {
			continue
		}
		var elems []any
		if err := json.Unmarshal(s.raw, &elems); err != nil || elems == nil {
			return apperr.User(method, "invalid value for "+s.field)
		}
		tags := make([]string, 0, len(elems))
		for _, e := range elems {
			str, ok := e.(string)
			if !ok {
				return apperr.User(method, "invalid value for "+s.field)
			}
			tags = append(tags, str)
		}
		*s.dst = tags
	}
	return nil
}

func str(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func orEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
