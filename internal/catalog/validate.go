package catalog

import (
	"errors"
	"sort"
	"strings"
	"time"

	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/validation"
	"internship-matcher/internal/taxonomy"
)

// ParseDeadline accepts RFC 3339 timestamps or YYYY-MM-DD dates. A bare date
// stays open through the last nanosecond of that UTC day.
func ParseDeadline(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(24*time.Hour - time.Nanosecond).UTC(), nil
}

// Validate checks an ingested opportunity and canonicalizes it. Failures are
// invalid_opportunity errors carrying the offending field and the id.
func Validate(in Input, tax *taxonomy.Taxonomy) (Opportunity, error) {
	if tax == nil {
		tax = taxonomy.Default()
	}
	id := strings.TrimSpace(in.ID)

	if err := validation.Struct(in); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			invalid := apperr.InvalidOpportunity(id, appErr.Field, appErr.Field+" "+appErr.Message)
			invalid.Fields = appErr.Fields
			return Opportunity{}, invalid
		}
		return Opportunity{}, apperr.InvalidOpportunity(id, "", err.Error())
	}

	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return Opportunity{}, apperr.InvalidOpportunity(id, "deadline", "deadline must be RFC 3339 or YYYY-MM-DD")
	}
	status, ok := ParseStatus(in.Status)
	if !ok {
		return Opportunity{}, apperr.InvalidOpportunity(id, "status", "status must be open or closed")
	}

	required := skillSet(tax, in.RequiredSkills)
	preferred := skillSet(tax, in.PreferredSkills)
	preferred = without(preferred, required)

	return Opportunity{
		ID:               id,
		Title:            strings.TrimSpace(in.Title),
		Organization:     strings.TrimSpace(in.Organization),
		Description:      strings.TrimSpace(in.Description),
		RequiredSkills:   required,
		PreferredSkills:  preferred,
		Location:         strings.TrimSpace(in.Location),
		LocationKey:      tax.Location(in.Location),
		Sector:           tax.Sector(in.Sector),
		Duration:         strings.TrimSpace(in.Duration),
		Stipend:          strings.TrimSpace(in.Stipend),
		EmploymentType:   strings.TrimSpace(in.EmploymentType),
		Perks:            trimmedList(in.Perks),
		Responsibilities: trimmedList(in.Responsibilities),
		PostedBy:         strings.TrimSpace(in.PostedBy),
		Deadline:         deadline,
		Openings:         in.Openings,
		Status:           status,
	}, nil
}

// check enforces the invariants every stored opportunity must hold, whichever
// path it arrived through.
func (o Opportunity) check() error {
	switch {
	case strings.TrimSpace(o.ID) == "":
		return apperr.InvalidOpportunity(o.ID, "id", "id is required")
	case o.Openings < 0:
		return apperr.InvalidOpportunity(o.ID, "openings", "openings must be >= 0")
	case o.Deadline.IsZero():
		return apperr.InvalidOpportunity(o.ID, "deadline", "deadline is required")
	case o.Status != StatusOpen && o.Status != StatusClosed:
		return apperr.InvalidOpportunity(o.ID, "status", "status must be open or closed")
	}
	return nil
}

func skillSet(tax *taxonomy.Taxonomy, raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		s := tax.Skill(r)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// without drops from sorted every entry present in exclude (also sorted).
func without(sorted, exclude []string) []string {
	out := make([]string, 0, len(sorted))
	for _, s := range sorted {
		i := sort.SearchStrings(exclude, s)
		if i < len(exclude) && exclude[i] == s {
			continue
		}
		out = append(out, s)
	}
	return out
}

func trimmedList(raw []string) []string {
	var out []string
	for _, r := range raw {
		if s := strings.TrimSpace(r); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func foldStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
