package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Domain models stored as JSON documents keyed by (segment, id).
// See db/migrations/0001_records.sql.

// Key addresses a stored record. Segment is the partition key, ID the sort key.
type Key struct {
	ID      string `json:"id"`
	Segment string `json:"segment"`
}

func (k Key) String() string { return k.Segment + "/" + k.ID }

type SalaryRange string

const (
	SalaryUnknown          SalaryRange = "UNKNOWN"
	SalaryLower5K          SalaryRange = "LOWER5K"
	SalaryBetween5KAnd10K  SalaryRange = "BETWEEN5KAND10K"
	SalaryBetween10KAnd15K SalaryRange = "BETWEEN10KAND15K"
	SalaryHigher15K        SalaryRange = "HIGHER15K"
)

func (s SalaryRange) Valid() bool {
	switch s {
	case SalaryUnknown, SalaryLower5K, SalaryBetween5KAnd10K, SalaryBetween10KAnd15K, SalaryHigher15K:
		return true
	}
	return false
}

type SeekerStatus string

const (
	SeekerOpen    SeekerStatus = "OPEN"
	SeekerLooking SeekerStatus = "LOOKING"
	SeekerClosed  SeekerStatus = "CLOSED"
)

func (s SeekerStatus) Valid() bool {
	switch s {
	case SeekerOpen, SeekerLooking, SeekerClosed:
		return true
	}
	return false
}

type ListingStatus string

const (
	ListingOpen      ListingStatus = "OPEN"
	ListingSuspended ListingStatus = "SUSPENDED"
	ListingClosed    ListingStatus = "CLOSED"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingOpen, ListingSuspended, ListingClosed:
		return true
	}
	return false
}

// Operation is the kind of work carried by a queued Envelope. Values outside
// the known set are preserved as-is and handled as OpMatch by consumers.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpMatch  Operation = "MATCH"
)

// Envelope is the unit of work sent to a queue.
type Envelope struct {
	Operation Operation       `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEnvelope encodes payload into an Envelope for op.
func NewEnvelope(op Operation, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", op, err)
	}
	return Envelope{Operation: op, Payload: b}, nil
}

// Seeker is a person looking for a position.
type Seeker struct {
	ID             string       `json:"id"`
	Segment        string       `json:"segment"`
	Name           string       `json:"name"`
	Surname        string       `json:"surname"`
	Resume         string       `json:"resume"`
	SoftSkillsTags []string     `json:"softSkillsTags"`
	HardSkillsTags []string     `json:"hardSkillsTags"`
	PositionTags   []string     `json:"positionTags"`
	Status         SeekerStatus `json:"status"`
	SalaryRange    SalaryRange  `json:"salaryRange"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      *time.Time   `json:"updatedAt,omitempty"`
}

func (s Seeker) Key() Key { return Key{ID: s.ID, Segment: s.Segment} }

// Summary renders the seeker as a single notification line.
func (s Seeker) Summary() string { return s.ID + " / " + s.Name + " / " + s.Surname }

// Listing is an open position offered by a company.
type Listing struct {
	ID             string        `json:"id"`
	Segment        string        `json:"segment"`
	CompanyName    string        `json:"companyName"`
	JobTitle       string        `json:"jobTitle"`
	Description    string        `json:"description"`
	SoftSkillsTags []string      `json:"softSkillsTags"`
	HardSkillsTags []string      `json:"hardSkillsTags"`
	PositionTags   []string      `json:"positionTags"`
	Status         ListingStatus `json:"status"`
	SalaryRange    SalaryRange   `json:"salaryRange"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
}

func (l Listing) Key() Key { return Key{ID: l.ID, Segment: l.Segment} }

func (l Listing) Summary() string { return l.ID + " / " + l.CompanyName + " / " + l.JobTitle }

// SeekerInput is a create or update payload. Absent fields are nil. Tag sets
// stay raw so that malformed elements are reported by validation rather than
// by the JSON decoder.
type SeekerInput struct {
	Segment        *string         `json:"segment,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Surname        *string         `json:"surname,omitempty"`
	Resume         *string         `json:"resume,omitempty"`
	SoftSkillsTags json.RawMessage `json:"softSkillsTags,omitempty"`
	HardSkillsTags json.RawMessage `json:"hardSkillsTags,omitempty"`
	PositionTags   json.RawMessage `json:"positionTags,omitempty"`
	Status         *string         `json:"status,omitempty"`
	SalaryRange    *string         `json:"salaryRange,omitempty"`
}

func (in *SeekerInput) Empty() bool {
	return in == nil || (in.Segment == nil && in.Name == nil && in.Surname == nil && in.Resume == nil &&
		in.SoftSkillsTags == nil && in.HardSkillsTags == nil && in.PositionTags == nil &&
		in.Status == nil && in.SalaryRange == nil)
}

type ListingInput struct {
	Segment        *string         `json:"segment,omitempty"`
	CompanyName    *string         `json:"companyName,omitempty"`
	JobTitle       *string         `json:"jobTitle,omitempty"`
	Description    *string         `json:"description,omitempty"`
	SoftSkillsTags json.RawMessage `json:"softSkillsTags,omitempty"`
	HardSkillsTags json.RawMessage `json:"hardSkillsTags,omitempty"`
	PositionTags   json.RawMessage `json:"positionTags,omitempty"`
	Status         *string         `json:"status,omitempty"`
	SalaryRange    *string         `json:"salaryRange,omitempty"`
}

func (in *ListingInput) Empty() bool {
	return in == nil || (in.Segment == nil && in.CompanyName == nil && in.JobTitle == nil && in.Description == nil &&
		in.SoftSkillsTags == nil && in.HardSkillsTags == nil && in.PositionTags == nil &&
		in.Status == nil && in.SalaryRange == nil)
}

// Mutable document fields written by an update.
var (
	SeekerUpdateFields  = []string{"name", "surname", "resume", "softSkillsTags", "hardSkillsTags", "positionTags", "status", "salaryRange", "updatedAt"}
	ListingUpdateFields = []string{"companyName", "jobTitle", "description", "softSkillsTags", "hardSkillsTags", "positionTags", "status", "salaryRange", "updatedAt"}
)
