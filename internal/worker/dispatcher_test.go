package worker_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/internal/jobs"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/internal/persist"
	"github.com/garnizeh/talentmatch/internal/validate"
	"github.com/garnizeh/talentmatch/internal/worker"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository/mock"
)

var clock = validate.Clock{
	Now:   func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) },
	NewID: func() string { return "fresh-id" },
}

type fixture struct {
	seekers  *mock.Store[models.Seeker]
	listings *mock.Store[models.Listing]
	queue    *mock.Queue
	pub      *mock.Publisher
	d        *worker.Dispatcher[models.Seeker, models.SeekerInput, models.Listing]
}

func newFixture(seed ...models.Seeker) *fixture {
	f := &fixture{
		seekers: mock.NewStore(seed...),
		listings: mock.NewStore(
			models.Listing{ID: "l-1", Segment: "Tech", CompanyName: "Acme", JobTitle: "Backend", Status: models.ListingOpen, HardSkillsTags: []string{"go"}},
		),
		queue: &mock.Queue{},
		pub:   &mock.Publisher{},
	}
	coord := persist.New[models.Seeker, models.SeekerInput]("seeker", persist.Direct, validate.Seekers{Clock: clock}, f.seekers, f.queue, nil)
	f.d = worker.New(coord, match.NewListingNotifier(f.listings, f.pub, nil), nil)
	return f
}

// queued is a seeker as a DEFERRED coordinator enqueues it: validated, with
// defaults filled in.
func queued() models.Seeker {
	return models.Seeker{
		ID: "q-1", Segment: "Tech", Name: "Ada", Surname: "Lovelace", Resume: "-",
		HardSkillsTags: []string{"go"}, SoftSkillsTags: []string{}, PositionTags: []string{},
		Status: models.SeekerOpen, SalaryRange: models.SalaryUnknown,
		CreatedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func envelope(t *testing.T, op models.Operation, s any) models.Envelope {
	t.Helper()
	env, err := models.NewEnvelope(op, s)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	return env
}

func TestHandle_CreateStoresQueuedRecord(t *testing.T) {
	f := newFixture()
	if err := f.d.Handle(context.Background(), envelope(t, models.OpCreate, queued())); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got, _ := f.seekers.Get(context.Background(), models.Key{ID: "q-1", Segment: "Tech"})
	if got == nil {
		t.Fatalf("record not stored under queued id")
	}
	if !got.CreatedAt.Equal(queued().CreatedAt) || got.Status != models.SeekerOpen || got.Resume != "-" {
		t.Fatalf("queued record not revalidated: %+v", got)
	}
	if msgs := f.queue.Messages(); len(msgs) != 1 || msgs[0].Operation != models.OpMatch {
		t.Fatalf("expected MATCH dispatch after create, got %+v", msgs)
	}
}

func TestHandle_CreateFillsDefaultsForOmittedFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	env := envelope(t, models.OpCreate, map[string]any{
		"id": "ext-1", "segment": "Tech", "name": "Ada", "surname": "Lovelace", "hardSkillsTags": []string{"go"},
	})
	if err := f.d.Handle(ctx, env); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	got, _ := f.seekers.Get(ctx, models.Key{ID: "ext-1", Segment: "Tech"})
	if got == nil {
		t.Fatalf("record not stored under producer id")
	}
	if got.Resume != "-" || got.Status != models.SeekerOpen || got.SalaryRange != models.SalaryUnknown {
		t.Fatalf("defaults not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("expected createdAt from clock, got %v", got.CreatedAt)
	}

	noID := envelope(t, models.OpCreate, map[string]any{"segment": "Tech", "name": "Grace", "surname": "Hopper"})
	if err := f.d.Handle(ctx, noID); err != nil {
		t.Fatalf("Handle without id: %v", err)
	}
	if got, _ := f.seekers.Get(ctx, models.Key{ID: "fresh-id", Segment: "Tech"}); got == nil || got.Name != "Grace" {
		t.Fatalf("expected generated id, got %+v", got)
	}
}

func TestHandle_PartialUpdateKeepsOmittedFields(t *testing.T) {
	stored := queued()
	stored.Resume = "compilers, COBOL"
	f := newFixture(stored)
	ctx := context.Background()

	env := envelope(t, models.OpUpdate, map[string]any{"id": "q-1", "segment": "Tech", "status": "LOOKING"})
	if err := f.d.Handle(ctx, env); err != nil {
		t.Fatalf("partial update: %v", err)
	}
	got, _ := f.seekers.Get(ctx, stored.Key())
	if got.Status != models.SeekerLooking || got.Name != "Ada" || got.Surname != "Lovelace" || got.Resume != "compilers, COBOL" {
		t.Fatalf("omitted fields were not kept: %+v", got)
	}
	if len(got.HardSkillsTags) != 1 || got.UpdatedAt == nil {
		t.Fatalf("unexpected merge result: %+v", got)
	}

	emptied := envelope(t, models.OpUpdate, map[string]any{"id": "q-1", "segment": "Tech", "name": ""})
	err := f.d.Handle(ctx, emptied)
	if !apperr.IsUser(err) || apperr.Message(err) != "invalid entry on field data, missing information about name" {
		t.Fatalf("expected missing name error, got %v", err)
	}
}

func TestHandle_DuplicateCreateIsSkipped(t *testing.T) {
	stored := queued()
	stored.Name = "Already"
	f := newFixture(stored)

	if err := f.d.Handle(context.Background(), envelope(t, models.OpCreate, queued())); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if f.seekers.Puts != 0 {
		t.Fatalf("duplicate create must not write, puts=%d", f.seekers.Puts)
	}
	got, _ := f.seekers.Get(context.Background(), stored.Key())
	if got.Name != "Already" {
		t.Fatalf("stored record overwritten: %+v", got)
	}
}

func TestHandle_CreateRejectsInvalidRecord(t *testing.T) {
	f := newFixture()
	bad := queued()
	bad.Surname = ""
	err := f.d.Handle(context.Background(), envelope(t, models.OpCreate, bad))
	if !apperr.IsUser(err) {
		t.Fatalf("expected user error, got %v", err)
	}
	if f.seekers.Len() != 0 {
		t.Fatalf("invalid record stored")
	}
}

func TestHandle_UpdateAndDelete(t *testing.T) {
	f := newFixture(queued())
	ctx := context.Background()

	changed := queued()
	changed.Name = "Grace"
	if err := f.d.Handle(ctx, envelope(t, models.OpUpdate, changed)); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := f.seekers.Get(ctx, changed.Key())
	if got.Name != "Grace" || got.UpdatedAt == nil || f.seekers.Updates != 1 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := f.d.Handle(ctx, envelope(t, models.OpDelete, changed)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.seekers.Len() != 0 {
		t.Fatalf("record not deleted")
	}
}

func TestHandle_MatchAndUnknownOperationsNotify(t *testing.T) {
	for _, op := range []models.Operation{models.OpMatch, "REFRESH", ""} {
		t.Run(string(op), func(t *testing.T) {
			f := newFixture()
			if err := f.d.Handle(context.Background(), envelope(t, op, queued())); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			msgs := f.pub.Messages()
			if len(msgs) != 1 || msgs[0].Subject != match.TopicListingMatches || msgs[0].Body != "l-1 / Acme / Backend" {
				t.Fatalf("unexpected publish: %+v", msgs)
			}
			if f.seekers.Puts+f.seekers.Updates+f.seekers.Deletes != 0 {
				t.Fatalf("match must not write")
			}
		})
	}
}

func TestHandle_StoreFailureIsInternal(t *testing.T) {
	f := newFixture()
	f.seekers.GetErr = context.DeadlineExceeded
	err := f.d.Handle(context.Background(), envelope(t, models.OpCreate, queued()))
	if !apperr.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestHandleBatch_StopsAtFirstFailure(t *testing.T) {
	f := newFixture()
	missing := queued()
	missing.ID = "nobody"
	later := queued()
	later.ID = "q-2"

	n, err := f.d.HandleBatch(context.Background(), []models.Envelope{
		envelope(t, models.OpCreate, queued()),
		envelope(t, models.OpUpdate, missing),
		envelope(t, models.OpCreate, later),
	})
	if n != 1 || !apperr.IsUser(err) {
		t.Fatalf("expected failure at index 1, got n=%d err=%v", n, err)
	}
	if f.seekers.Len() != 1 {
		t.Fatalf("envelopes after the failure must not run, stored=%d", f.seekers.Len())
	}
}

func TestJobHandler_RejectsMalformedEnvelope(t *testing.T) {
	f := newFixture()
	good, _ := json.Marshal(envelope(t, models.OpCreate, queued()))
	batch := []*jobs.Job{
		{ID: 1, Payload: good},
		{ID: 2, Payload: json.RawMessage(`{"operation":"CREATE","payload":"not an object"}`)},
		{ID: 3, Payload: good},
	}

	n, err := f.d.JobHandler()(context.Background(), batch)
	if n != 1 || !apperr.IsUser(err) {
		t.Fatalf("expected failure at index 1, got n=%d err=%v", n, err)
	}
	if f.seekers.Len() != 1 {
		t.Fatalf("first envelope should have been applied")
	}
}

func TestCheckEnvelope(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"full", `{"operation":"MATCH","payload":{"id":"1","segment":"Tech"}}`, true},
		{"no operation", `{"payload":{"id":"1","segment":"Tech"}}`, true},
		{"no payload", `{"operation":"MATCH"}`, false},
		{"numeric id", `{"operation":"MATCH","payload":{"id":1}}`, false},
		{"operation not string", `{"operation":3,"payload":{}}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := worker.CheckEnvelope(context.Background(), []byte(tc.raw))
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !apperr.IsUser(err) {
				t.Fatalf("expected user error, got %v", err)
			}
		})
	}
}
