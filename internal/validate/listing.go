package validate

import (
	"time"

	"github.com/garnizeh/talentmatch/internal/apperr"
	"github.com/garnizeh/talentmatch/pkg/models"
)

// Listings validates listing payloads. Same rules as Seekers with companyName
// and jobTitle as the required names and description as the free text.
type Listings struct {
	Clock
}

func (v Listings) Create(in *models.ListingInput) (*models.Listing, error) {
	const method = "validate.listing.create"

	if in.Empty() {
		return nil, apperr.User(method, msgMissing)
	}
	if err := required(method, "segment", in.Segment); err != nil {
		return nil, err
	}
	if err := required(method, "companyName", in.CompanyName); err != nil {
		return nil, err
	}
	if err := required(method, "jobTitle", in.JobTitle); err != nil {
		return nil, err
	}

	l := models.Listing{
		Status:      models.ListingOpen,
		SalaryRange: models.SalaryUnknown,
		Description: placeholderText,
	}
	if err := v.apply(method, &l, in); err != nil {
		return nil, err
	}
	l.Segment = *in.Segment
	l.ID = v.id()
	l.CreatedAt = v.now()
	return &l, nil
}

func (v Listings) Update(in *models.ListingInput, original *models.Listing) (*models.Listing, error) {
	const method = "validate.listing.update"

	if original == nil {
		return nil, apperr.User(method, msgNoData)
	}
	if in.Empty() {
		return nil, apperr.User(method, msgMissing)
	}
	if err := mergedRequired(method, "companyName", in.CompanyName); err != nil {
		return nil, err
	}
	if err := mergedRequired(method, "jobTitle", in.JobTitle); err != nil {
		return nil, err
	}

	l := *original
	if err := v.apply(method, &l, in); err != nil {
		return nil, err
	}
	l.ID, l.Segment, l.CreatedAt = original.ID, original.Segment, original.CreatedAt
	now := v.now()
	l.UpdatedAt = &now
	return &l, nil
}

func (v Listings) Delete(original *models.Listing) (*models.Listing, error) {
	if original == nil {
		return nil, apperr.User("validate.listing.delete", msgNoData)
	}
	return original, nil
}

func (v Listings) Revalidate(in *models.ListingInput, id string, createdAt time.Time) (*models.Listing, error) {
	l, err := v.Create(in)
	if err != nil {
		return nil, err
	}
	if id != "" {
		l.ID = id
	}
	if !createdAt.IsZero() {
		l.CreatedAt = createdAt
	}
	return l, nil
}

func (v Listings) UpdateFields() []string { return models.ListingUpdateFields }

func (v Listings) apply(method string, l *models.Listing, in *models.ListingInput) error {
	if err := decodeTags(method,
		tagSet{"hardSkillsTags", in.HardSkillsTags, &l.HardSkillsTags},
		tagSet{"softSkillsTags", in.SoftSkillsTags, &l.SoftSkillsTags},
		tagSet{"positionTags", in.PositionTags, &l.PositionTags},
	); err != nil {
		return err
	}
	if in.Status != nil {
		st := models.ListingStatus(*in.Status)
		if !st.Valid() {
			return apperr.Userf(method, "invalid value for status: got %s", *in.Status)
		}
		l.Status = st
	}
	if in.SalaryRange != nil {
		sr := models.SalaryRange(*in.SalaryRange)
		if !sr.Valid() {
			return apperr.Userf(method, "invalid value for salaryRange: got %s", *in.SalaryRange)
		}
		l.SalaryRange = sr
	}
	str(&l.CompanyName, in.CompanyName)
	str(&l.JobTitle, in.JobTitle)
	str(&l.Description, in.Description)
	l.HardSkillsTags = orEmpty(l.HardSkillsTags)
	l.SoftSkillsTags = orEmpty(l.SoftSkillsTags)
	l.PositionTags = orEmpty(l.PositionTags)
	return nil
}
