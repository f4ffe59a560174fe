// Package document holds the JSON document handling shared by the SQL
// backed stores: records are kept whole in one column and filtered in Go.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/garnizeh/talentmatch/internal/expr"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Encode marshals a record for storage.
func Encode[T any](item T) ([]byte, error) {
	b, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// Decode unmarshals a stored document into a record.
func Decode[T any](raw []byte) (*T, error) {
	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &item, nil
}

// Overlay copies the fields named in spec from values onto the stored
// document. Fields absent from values are removed.
func Overlay[T any](stored []byte, spec repository.UpdateSpec, values T) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(stored, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	b, err := Encode(values)
	if err != nil {
		return nil, err
	}
	var src map[string]any
	if err := json.Unmarshal(b, &src); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	for _, field := range spec {
		if v, ok := src[field]; ok {
			doc[field] = v
		} else {
			delete(doc, field)
		}
	}
	return Encode(doc)
}

// Filter is a compiled query ready to test stored documents.
type Filter struct {
	Field string
	Value string
	expr  *expr.Filter
}

// Compile resolves the partition predicate and filter expression of q.
func Compile(q repository.Query) (*Filter, error) {
	field, value, err := expr.PartitionValue(q.PartitionPredicate, q.Bindings)
	if err != nil {
		return nil, err
	}
	f, err := expr.Compile(q.FilterExpression, q.Bindings)
	if err != nil {
		return nil, fmt.Errorf("filter expression: %w", err)
	}
	return &Filter{Field: field, Value: value, expr: f}, nil
}

// Match reports whether the stored document raw satisfies the query.
func (f *Filter) Match(raw []byte) (bool, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	return doc[f.Field] == f.Value && f.expr.Match(doc), nil
}
