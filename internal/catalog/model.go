package catalog

import "time"

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// ParseStatus accepts open/closed in any case; empty means open.
func ParseStatus(raw string) (Status, bool) {
	switch Status(foldStatus(raw)) {
	case "", StatusOpen:
		return StatusOpen, true
	case StatusClosed:
		return StatusClosed, true
	}
	return "", false
}

// Opportunity is a validated internship posting. Skill lists, Sector and
// LocationKey are canonical; Location keeps the display text.
type Opportunity struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Organization     string    `json:"organization"`
	Description      string    `json:"description,omitempty"`
	RequiredSkills   []string  `json:"requiredSkills"`
	PreferredSkills  []string  `json:"preferredSkills"`
	Location         string    `json:"location"`
	LocationKey      string    `json:"locationKey"`
	Sector           string    `json:"sector"`
	Duration         string    `json:"duration,omitempty"`
	Stipend          string    `json:"stipend,omitempty"`
	EmploymentType   string    `json:"employmentType,omitempty"`
	Perks            []string  `json:"perks,omitempty"`
	Responsibilities []string  `json:"responsibilities,omitempty"`
	PostedBy         string    `json:"postedBy,omitempty"`
	Deadline         time.Time `json:"deadline"`
	Openings         int       `json:"openings"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// ActiveAt reports whether the opportunity can be recommended or applied to at asOf.
func (o Opportunity) ActiveAt(asOf time.Time) bool {
	return o.Status == StatusOpen && o.Openings > 0 && !o.Deadline.Before(asOf)
}

// Input is an opportunity as delivered by ingestion, before validation.
type Input struct {
	ID               string   `json:"id" validate:"notblank,max=128"`
	Title            string   `json:"title" validate:"max=300"`
	Organization     string   `json:"organization" validate:"max=300"`
	Description      string   `json:"description"`
	RequiredSkills   []string `json:"requiredSkills" validate:"max=100"`
	PreferredSkills  []string `json:"preferredSkills" validate:"max=100"`
	Location         string   `json:"location" validate:"notblank"`
	Sector           string   `json:"sector" validate:"notblank"`
	Duration         string   `json:"duration"`
	Stipend          string   `json:"stipend"`
	EmploymentType   string   `json:"employmentType"`
	Perks            []string `json:"perks"`
	Responsibilities []string `json:"responsibilities"`
	PostedBy         string   `json:"postedBy"`
	Deadline         string   `json:"deadline" validate:"notblank"`
	Openings         int      `json:"openings" validate:"gte=0"`
	Status           string   `json:"status"`
}

// Filter narrows a catalog read through the secondary indexes. Empty fields match everything.
type Filter struct {
	Sector   string
	Location string
}

func (o Opportunity) clone() Opportunity {
	o.RequiredSkills = append([]string(nil), o.RequiredSkills...)
	o.PreferredSkills = append([]string(nil), o.PreferredSkills...)
	o.Perks = append([]string(nil), o.Perks...)
	o.Responsibilities = append([]string(nil), o.Responsibilities...)
	return o
}
