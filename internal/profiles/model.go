package profiles

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EducationLevel is ordered: a higher value is a more advanced level.
type EducationLevel int

const (
	EducationUnknown EducationLevel = iota
	EducationHighSchool
	EducationDiploma
	EducationUndergraduate
	EducationPostgraduate
	EducationDoctorate
)

var educationNames = map[EducationLevel]string{
	EducationHighSchool:    "high_school",
	EducationDiploma:       "diploma",
	EducationUndergraduate: "undergraduate",
	EducationPostgraduate:  "postgraduate",
	EducationDoctorate:     "doctorate",
}

func (e EducationLevel) String() string {
	if name, ok := educationNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseEducationLevel accepts the canonical names produced by String.
func ParseEducationLevel(name string) (EducationLevel, bool) {
	for level, n := range educationNames {
		if n == name {
			return level, true
		}
	}
	return EducationUnknown, false
}

func (e EducationLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *EducationLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	level, ok := ParseEducationLevel(s)
	if !ok {
		return fmt.Errorf("unknown education level %q", s)
	}
	*e = level
	return nil
}

// Location values with special meaning for matching.
const (
	LocationRemote = "remote"
	LocationAny    = "any"
)

// RawProfile is the caller-supplied profile before normalization.
type RawProfile struct {
	UserID          string   `json:"userId" validate:"notblank"`
	Skills          []string `json:"skills" validate:"max=200"`
	ResumeSkills    []string `json:"resumeSkills" validate:"max=500"`
	EducationLevel  string   `json:"educationLevel" validate:"notblank"`
	FieldOfStudy    string   `json:"fieldOfStudy" validate:"notblank"`
	SectorInterests []string `json:"sectorInterests" validate:"max=50"`
	Location        string   `json:"location"`
}

// Profile is the canonical scoring input. Skills and SectorInterests are
// sorted and deduplicated so membership checks can binary search.
type Profile struct {
	UserID          string         `json:"userId"`
	Skills          []string       `json:"skills"`
	EducationLevel  EducationLevel `json:"educationLevel"`
	FieldOfStudy    string         `json:"fieldOfStudy"`
	SectorInterests []string       `json:"sectorInterests"`
	Location        string         `json:"location"`
	UpdatedAt       time.Time      `json:"updatedAt,omitempty"`
}

// HasSkill reports whether the canonical skill is in the profile.
func (p Profile) HasSkill(skill string) bool {
	return containsSorted(p.Skills, skill)
}

// InterestedIn reports whether the canonical sector is among the interests.
func (p Profile) InterestedIn(sector string) bool {
	return containsSorted(p.SectorInterests, sector)
}

func containsSorted(sorted []string, v string) bool {
	i := sort.SearchStrings(sorted, v)
	return i < len(sorted) && sorted[i] == v
}
