package validate

import (
	"time"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/pkg/models"
)

// Seekers validates seeker payloads.
type Seekers struct {
	Clock
}

// Create validates a new seeker and fills defaults, id and createdAt.
func (v Seekers) Create(in *models.SeekerInput) (*models.Seeker, error) {
	const method = "validate.seeker.create"

	if in.Empty() {
		return nil, apperr.User(method, msgMissing)
	}
	if err := required(method, "segment", in.Segment); err != nil {
		return nil, err
	}
	if err := required(method, "name", in.Name); err != nil {
		return nil, err
	}
	if err := required(method, "surname", in.Surname); err != nil {
		return nil, err
	}

	s := models.Seeker{
		Status:      models.SeekerOpen,
		SalaryRange: models.SalaryUnknown,
		Resume:      placeholderText,
	}
	if err := v.apply(method, &s, in); err != nil {
		return nil, err
	}
	s.Segment = *in.Segment
	s.ID = v.id()
	s.CreatedAt = v.now()
	return &s, nil
}

// Update merges in over original. Identity fields always come from original
// and updatedAt is refreshed.
func (v Seekers) Update(in *models.SeekerInput, original *models.Seeker) (*models.Seeker, error) {
	const method = "validate.seeker.update"

	if original == nil {
		return nil, apperr.User(method, msgNoData)
	}
	if in.Empty() {
		return nil, apperr.User(method, msgMissing)
	}
	if err := mergedRequired(method, "name", in.Name); err != nil {
		return nil, err
	}
	if err := mergedRequired(method, "surname", in.Surname); err != nil {
		return nil, err
	}

	s := *original
	if err := v.apply(method, &s, in); err != nil {
		return nil, err
	}
	s.ID, s.Segment, s.CreatedAt = original.ID, original.Segment, original.CreatedAt
	now := v.now()
	s.UpdatedAt = &now
	return &s, nil
}

// Delete guards against removing a record that does not exist.
func (v Seekers) Delete(original *models.Seeker) (*models.Seeker, error) {
	if original == nil {
		return nil, apperr.User("validate.seeker.delete", msgNoData)
	}
	return original, nil
}

// Revalidate runs the create checks on a payload taken from a queue. A
// non-empty id and createdAt assigned before it was queued are kept; absent
// fields get the same defaults as on Create.
func (v Seekers) Revalidate(in *models.SeekerInput, id string, createdAt time.Time) (*models.Seeker, error) {
	s, err := v.Create(in)
	if err != nil {
		return nil, err
	}
	if id != "" {
		s.ID = id
	}
	if !createdAt.IsZero() {
		s.CreatedAt = createdAt
	}
	return s, nil
}

func (v Seekers) UpdateFields() []string { return models.SeekerUpdateFields }

// apply copies the fields present in in onto s, checking tag sets and enums.
func (v Seekers) apply(method string, s *models.Seeker, in *models.SeekerInput) error {
	if err := decodeTags(method,
		tagSet{"hardSkillsTags", in.HardSkillsTags, &s.HardSkillsTags},
		tagSet{"softSkillsTags", in.SoftSkillsTags, &s.SoftSkillsTags},
		tagSet{"positionTags", in.PositionTags, &s.PositionTags},
	); err != nil {
		return err
	}
	if in.Status != nil {
		st := models.SeekerStatus(*in.Status)
		if !st.Valid() {
			return apperr.Userf(method, "invalid value for status: got %s", *in.Status)
		}
		s.Status = st
	}
	if in.SalaryRange != nil {
		sr := models.SalaryRange(*in.SalaryRange)
		if !sr.Valid() {
			return apperr.Userf(method, "invalid value for salaryRange: got %s", *in.SalaryRange)
		}
		s.SalaryRange = sr
	}
	str(&s.Name, in.Name)
	str(&s.Surname, in.Surname)
	str(&s.Resume, in.Resume)
	s.HardSkillsTags = orEmpty(s.HardSkillsTags)
	s.SoftSkillsTags = orEmpty(s.SoftSkillsTags)
	s.PositionTags = orEmpty(s.PositionTags)
	return nil
}
