package profiles

import (
	"errors"
	"sort"
	"strings"

	"internship-matcher/internal/shared/apperr"
	"internship-matcher/internal/shared/validation"
	"internship-matcher/internal/taxonomy"
)

// Normalizer turns raw profiles into canonical ones. It holds no mutable
// state, so one instance is safe for concurrent use.
type Normalizer struct {
	Tax *taxonomy.Taxonomy
}

func NewNormalizer(tax *taxonomy.Taxonomy) *Normalizer {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Normalizer{Tax: tax}
}

// Normalize validates raw and folds it onto the taxonomy. It either returns a
// profile with at least one skill or a validation error naming every bad field.
func (n *Normalizer) Normalize(raw RawProfile) (Profile, error) {
	tax := n.Tax
	if tax == nil {
		tax = taxonomy.Default()
	}

	problems := map[string]string{}
	if err := validation.Struct(raw); err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			return Profile{}, err
		}
		for field, msg := range appErr.Fields {
			problems[field] = msg
		}
		if len(appErr.Fields) == 0 && appErr.Field != "" {
			problems[appErr.Field] = appErr.Message
		}
	}

	level := EducationUnknown
	if _, bad := problems["educationLevel"]; !bad {
		key, ok := tax.Education(raw.EducationLevel)
		if ok {
			level, ok = ParseEducationLevel(key)
		}
		if !ok {
			problems["educationLevel"] = "is not a recognized education level"
		}
	}

	skills := canonicalSet(tax.Skill, raw.Skills, raw.ResumeSkills)
	if len(skills) == 0 {
		if _, bad := problems["skills"]; !bad {
			problems["skills"] = "must contain at least one skill"
		}
	}

	if len(problems) > 0 {
		return Profile{}, apperr.ValidationFields(problems)
	}

	location := tax.Location(raw.Location)
	if location == "" {
		location = LocationAny
	}

	return Profile{
		UserID:          strings.TrimSpace(raw.UserID),
		Skills:          skills,
		EducationLevel:  level,
		FieldOfStudy:    taxonomy.Fold(raw.FieldOfStudy),
		SectorInterests: canonicalSet(tax.Sector, raw.SectorInterests),
		Location:        location,
	}, nil
}

// canonicalSet maps every entry through fold, drops blanks and duplicates, and sorts.
func canonicalSet(fold func(string) string, lists ...[]string) []string {
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, raw := range list {
			if v := fold(raw); v != "" {
				seen[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
