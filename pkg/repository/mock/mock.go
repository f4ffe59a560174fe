package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/garnizeh/talentmatch/internal/expr"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

// Test doubles for the repository ports.

// Store is an in-memory repository.Store. Set the *Err fields to make the
// matching call fail.
type Store[T repository.Record] struct {
	mu    sync.Mutex
	items map[models.Key]T

	GetErr, PutErr, UpdateErr, DeleteErr, QueryErr error

	Puts, Updates, Deletes, Queries int
}

var _ repository.Store[models.Seeker] = (*Store[models.Seeker])(nil)

func NewStore[T repository.Record](seed ...T) *Store[T] {
	s := &Store[T]{items: make(map[models.Key]T)}
	for _, item := range seed {
		s.items[item.Key()] = item
	}
	return s
}

func (s *Store[T]) Get(ctx context.Context, key models.Key) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	item, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store[T]) Put(ctx context.Context, item T) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Puts++
	if s.PutErr != nil {
		return nil, s.PutErr
	}
	s.items[item.Key()] = item
	return &item, nil
}

// Update replaces the stored item. The field list is ignored: values hold
// the merged record.
func (s *Store[T]) Update(ctx context.Context, key models.Key, spec repository.UpdateSpec, values T) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updates++
	if s.UpdateErr != nil {
		return nil, s.UpdateErr
	}
	if _, ok := s.items[key]; !ok {
		return nil, fmt.Errorf("update %s: not found", key)
	}
	s.items[key] = values
	return &values, nil
}

func (s *Store[T]) Delete(ctx context.Context, key models.Key) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes++
	if s.DeleteErr != nil {
		return nil, s.DeleteErr
	}
	item, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	delete(s.items, key)
	return &item, nil
}

// Query evaluates q against the stored items, ordered by id.
func (s *Store[T]) Query(ctx context.Context, q repository.Query) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries++
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}
	field, value, err := expr.PartitionValue(q.PartitionPredicate, q.Bindings)
	if err != nil {
		return nil, err
	}
	filter, err := expr.Compile(q.FilterExpression, q.Bindings)
	if err != nil {
		return nil, err
	}

	var out []T
	for _, item := range s.items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		if doc[field] == value && filter.Match(doc) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key().ID < out[j].Key().ID })
	return out, nil
}

// Len reports how many items are stored.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Queue records sent envelopes.
type Queue struct {
	mu      sync.Mutex
	Sent    []models.Envelope
	SendErr error
}

var _ repository.Queue = (*Queue)(nil)

func (q *Queue) Send(ctx context.Context, env models.Envelope) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.SendErr != nil {
		return "", q.SendErr
	}
	q.Sent = append(q.Sent, env)
	return fmt.Sprintf("msg-%d", len(q.Sent)), nil
}

// Messages returns a copy of the envelopes sent so far.
func (q *Queue) Messages() []models.Envelope {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.Envelope(nil), q.Sent...)
}

// Message is a published body and its subject.
type Message struct {
	Subject string
	Body    string
}

// Publisher records published messages.
type Publisher struct {
	mu         sync.Mutex
	Published  []Message
	PublishErr error
}

var _ repository.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(ctx context.Context, subject, body string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PublishErr != nil {
		return "", p.PublishErr
	}
	p.Published = append(p.Published, Message{Subject: subject, Body: body})
	return fmt.Sprintf("pub-%d", len(p.Published)), nil
}

func (p *Publisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.Published...)
}
