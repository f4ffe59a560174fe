package match_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/internal/match"
	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository/mock"
)

func TestListingsForSeeker_HardSkills(t *testing.T) {
	s := models.Seeker{
		Segment:        "Tech",
		HardSkillsTags: []string{"go", "rust"},
		PositionTags:   []string{},
		SoftSkillsTags: []string{},
	}
	q := match.ListingsForSeeker(s)

	wantFilter := "status = OPEN\n  AND ( contains(hardSkillsTags, :hardSkillsTags0) OR contains(hardSkillsTags, :hardSkillsTags1))"
	if q.FilterExpression != wantFilter {
		t.Fatalf("filter mismatch:\n got %q\nwant %q", q.FilterExpression, wantFilter)
	}
	if q.PartitionPredicate != "segment = :segment" {
		t.Fatalf("unexpected partition predicate %q", q.PartitionPredicate)
	}
	wantBindings := map[string]string{
		":segment":         "Tech",
		":status":          "OPEN",
		":hardSkillsTags0": "go",
		":hardSkillsTags1": "rust",
	}
	if !reflect.DeepEqual(q.Bindings, wantBindings) {
		t.Fatalf("bindings mismatch: got %v want %v", q.Bindings, wantBindings)
	}
}

func TestBuild_FieldOrderAndDeterminism(t *testing.T) {
	l := models.Listing{
		Segment:        "Ops",
		HardSkillsTags: []string{"k8s"},
		SoftSkillsTags: []string{"calm", "clear"},
		PositionTags:   []string{"sre"},
	}
	q := match.SeekersForListing(l)
	want := "status IN (OPEN, LOOKING)\n  AND ( contains(positionTags, :positionTags0)" +
		" OR contains(softSkillsTags, :softSkillsTags0)" +
		" OR contains(softSkillsTags, :softSkillsTags1)" +
		" OR contains(hardSkillsTags, :hardSkillsTags0))"
	if q.FilterExpression != want {
		t.Fatalf("filter mismatch:\n got %q\nwant %q", q.FilterExpression, want)
	}
	if q.Bindings[":status0"] != "OPEN" || q.Bindings[":status1"] != "LOOKING" || q.Bindings[":segment"] != "Ops" {
		t.Fatalf("status bindings missing: %v", q.Bindings)
	}
	if len(q.Bindings) != 7 {
		t.Fatalf("expected 7 bindings, got %d: %v", len(q.Bindings), q.Bindings)
	}

	again := match.SeekersForListing(l)
	if again.FilterExpression != q.FilterExpression || !reflect.DeepEqual(again.Bindings, q.Bindings) {
		t.Fatalf("builder is not deterministic")
	}
}

func TestBuild_NoTags(t *testing.T) {
	q := match.ListingsForSeeker(models.Seeker{Segment: "Tech"})
	if q.FilterExpression != "status = OPEN\n  " {
		t.Fatalf("unexpected filter %q", q.FilterExpression)
	}
	if strings.Contains(q.FilterExpression, "AND") {
		t.Fatalf("empty tag sets must not produce an AND group")
	}
	if len(q.Bindings) != 2 {
		t.Fatalf("expected segment and status bindings only, got %v", q.Bindings)
	}

	q = match.SeekersForListing(models.Listing{Segment: "Tech"})
	if q.FilterExpression != "status IN (OPEN, LOOKING)\n  " {
		t.Fatalf("unexpected filter %q", q.FilterExpression)
	}
}

func TestBuild_DirectionSymmetry(t *testing.T) {
	tags := []string{"a", "b"}
	fromSeeker := match.ListingsForSeeker(models.Seeker{Segment: "X", SoftSkillsTags: tags})
	fromListing := match.SeekersForListing(models.Listing{Segment: "X", SoftSkillsTags: tags})

	groupOf := func(f string) string { return f[strings.Index(f, "\n"):] }
	if groupOf(fromSeeker.FilterExpression) != groupOf(fromListing.FilterExpression) {
		t.Fatalf("tag groups differ:\n%q\n%q", fromSeeker.FilterExpression, fromListing.FilterExpression)
	}
	for _, k := range []string{":softSkillsTags0", ":softSkillsTags1"} {
		if fromSeeker.Bindings[k] != fromListing.Bindings[k] {
			t.Fatalf("binding %s differs", k)
		}
	}
}

func seedListings() *mock.Store[models.Listing] {
	return mock.NewStore(
		models.Listing{ID: "l-1", Segment: "Tech", CompanyName: "Acme", JobTitle: "Backend", Status: models.ListingOpen, HardSkillsTags: []string{"go"}},
		models.Listing{ID: "l-2", Segment: "Tech", CompanyName: "Globex", JobTitle: "Systems", Status: models.ListingOpen, HardSkillsTags: []string{"rust", "c"}},
		models.Listing{ID: "l-3", Segment: "Tech", CompanyName: "Initech", JobTitle: "Closed", Status: models.ListingClosed, HardSkillsTags: []string{"go"}},
		models.Listing{ID: "l-4", Segment: "Retail", CompanyName: "Shop", JobTitle: "Go dev", Status: models.ListingOpen, HardSkillsTags: []string{"go"}},
		models.Listing{ID: "l-5", Segment: "Tech", CompanyName: "Hooli", JobTitle: "Frontend", Status: models.ListingOpen, HardSkillsTags: []string{"js"}},
	)
}

func TestNotifier_PublishesSummary(t *testing.T) {
	pub := &mock.Publisher{}
	n := match.NewListingNotifier(seedListings(), pub, nil)

	found, err := n.Match(context.Background(), models.Seeker{ID: "s-1", Segment: "Tech", HardSkillsTags: []string{"go", "rust"}})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(found) != 2 || found[0].ID != "l-1" || found[1].ID != "l-2" {
		t.Fatalf("unexpected matches: %+v", found)
	}
	msgs := pub.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one publish, got %d", len(msgs))
	}
	if msgs[0].Subject != "listing-matches" {
		t.Fatalf("unexpected subject %q", msgs[0].Subject)
	}
	if msgs[0].Body != "l-1 / Acme / Backend\nl-2 / Globex / Systems" {
		t.Fatalf("unexpected body %q", msgs[0].Body)
	}
}

func TestNotifier_EmptyResultSkipsPublish(t *testing.T) {
	pub := &mock.Publisher{PublishErr: errors.New("must not be called")}
	n := match.NewListingNotifier(seedListings(), pub, nil)

	found, err := n.Match(context.Background(), models.Seeker{ID: "s-1", Segment: "Tech", HardSkillsTags: []string{"cobol"}})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no matches, got %+v", found)
	}
}

func TestNotifier_PublishFailureIsInternal(t *testing.T) {
	pub := &mock.Publisher{PublishErr: errors.New("broker down")}
	n := match.NewListingNotifier(seedListings(), pub, nil)

	_, err := n.Match(context.Background(), models.Seeker{ID: "s-1", Segment: "Tech", HardSkillsTags: []string{"go"}})
	if !apperr.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestSeekerNotifier_MatchesLookingSeekers(t *testing.T) {
	seekers := mock.NewStore(
		models.Seeker{ID: "s-1", Segment: "Tech", Name: "Ada", Surname: "L", Status: models.SeekerLooking, PositionTags: []string{"backend"}},
		models.Seeker{ID: "s-2", Segment: "Tech", Name: "Bob", Surname: "K", Status: models.SeekerClosed, PositionTags: []string{"backend"}},
		models.Seeker{ID: "s-3", Segment: "Tech", Name: "Cy", Surname: "M", Status: models.SeekerOpen, SoftSkillsTags: []string{"calm"}},
	)
	pub := &mock.Publisher{}
	n := match.NewSeekerNotifier(seekers, pub, nil)
	if n.Topic() != "seeker-matches" {
		t.Fatalf("unexpected topic %q", n.Topic())
	}

	found, err := n.Match(context.Background(), models.Listing{ID: "l-1", Segment: "Tech", PositionTags: []string{"backend"}, SoftSkillsTags: []string{"calm"}})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(found) != 2 || found[0].ID != "s-1" || found[1].ID != "s-3" {
		t.Fatalf("unexpected matches: %+v", found)
	}
	if body := pub.Messages()[0].Body; body != "s-1 / Ada / L\ns-3 / Cy / M" {
		t.Fatalf("unexpected body %q", body)
	}
}
