// Package match builds counterpart queries from an entity's tag sets and
// publishes the records they find.
package match

import (
	"strconv"
	"strings"

	"github.com/garnizeh/talentmatch/pkg/models"
	"github.com/garnizeh/talentmatch/pkg/repository"
)

const partitionPredicate = "segment = :segment"

// tagField pairs a source tag set with the counterpart field it is matched
// against. Seekers and Listings share field names.
type tagField struct {
	name string
	tags []string
}

// ListingsForSeeker selects open listings in the seeker's segment sharing at
// least one tag with it.
func ListingsForSeeker(s models.Seeker) repository.Query {
	return build(s.Segment, "status = OPEN", map[string]string{":status": string(models.ListingOpen)},
		tagFields(s.PositionTags, s.SoftSkillsTags, s.HardSkillsTags))
}

// SeekersForListing selects seekers in the listing's segment that are open or
// looking and share at least one tag with it.
func SeekersForListing(l models.Listing) repository.Query {
	return build(l.Segment, "status IN (OPEN, LOOKING)", map[string]string{
		":status0": string(models.SeekerOpen),
		":status1": string(models.SeekerLooking),
	}, tagFields(l.PositionTags, l.SoftSkillsTags, l.HardSkillsTags))
}

// tagFields fixes the fold order: position, soft skills, hard skills.
func tagFields(position, soft, hard []string) []tagField {
	return []tagField{
		{name: "positionTags", tags: position},
		{name: "softSkillsTags", tags: soft},
		{name: "hardSkillsTags", tags: hard},
	}
}

// build folds every tag into one OR group. Parameters are named after the
// counterpart field plus the tag's index within its set, e.g.
// :hardSkillsTags1. The group is left out when there are no tags, leaving
// the status predicate followed by the separator.
func build(segment, status string, statusBindings map[string]string, fields []tagField) repository.Query {
	bindings := map[string]string{":segment": segment}
	for k, v := range statusBindings {
		bindings[k] = v
	}

	var clauses strings.Builder
	for _, f := range fields {
		for i, tag := range f.tags {
			param := ":" + f.name + strconv.Itoa(i)
			if clauses.Len() > 0 {
				clauses.WriteString(" OR")
			}
			clauses.WriteString(" contains(" + f.name + ", " + param + ")")
			bindings[param] = tag
		}
	}

	group := ""
	if clauses.Len() > 0 {
		group = "AND (" + clauses.String() + ")"
	}

	return repository.Query{
		PartitionPredicate: partitionPredicate,
		FilterExpression:   status + "\n  " + group,
		Bindings:           bindings,
	}
}
