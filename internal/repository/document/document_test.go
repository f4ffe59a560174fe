package document_test

import (
	"testing"

	"github.com/garnizeh/talentmatch/internal/repository/document"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

func TestOverlay(t *testing.T) {
	stored := []byte(`{"id":"s-1","segment":"Tech","name":"Ada","surname":"Lovelace","updatedAt":"2024-01-01T00:00:00Z"}`)
	values := models.Seeker{ID: "other", Segment: "Tech", Name: "Grace", Surname: "Hopper"}

	merged, err := document.Overlay(stored, repository.UpdateSpec{"name", "updatedAt"}, values)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	got, err := document.Decode[models.Seeker](merged)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != "s-1" || got.Name != "Grace" || got.Surname != "Lovelace" {
		t.Fatalf("unexpected merge: %+v", got)
	}
	// updatedAt is omitted from values, so it is removed
	if got.UpdatedAt != nil {
		t.Fatalf("expected updatedAt removed, got %v", got.UpdatedAt)
	}
}

func TestFilterMatch(t *testing.T) {
	f, err := document.Compile(repository.Query{
		PartitionPredicate: "segment = :segment",
		FilterExpression:   "status = OPEN AND (contains(hardSkillsTags, :t0))",
		Bindings:           map[string]string{":segment": "Tech", ":t0": "go"},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cases := map[string]bool{
		`{"segment":"Tech","status":"OPEN","hardSkillsTags":["go"]}`:   true,
		`{"segment":"Retail","status":"OPEN","hardSkillsTags":["go"]}`: false,
		`{"segment":"Tech","status":"CLOSED","hardSkillsTags":["go"]}`: false,
		`{"segment":"Tech","status":"OPEN","hardSkillsTags":[]}`:       false,
	}
	for raw, want := range cases {
		got, err := f.Match([]byte(raw))
		if err != nil {
			t.Fatalf("Match(%s): %v", raw, err)
		}
		if got != want {
			t.Fatalf("Match(%s) = %v, want %v", raw, got, want)
		}
	}
	if _, err := f.Match([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
