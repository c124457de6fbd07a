package matching

import (
	"math"
	"sort"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/profiles"
)

// Component weights. They sum to 1.
const (
	WeightRequired  = 0.5
	WeightPreferred = 0.2
	WeightLocation  = 0.15
	WeightSector    = 0.15

	// ReasonThreshold is the sub-score a component needs before its reason is reported.
	ReasonThreshold = 0.5
)

type Reason string

const (
	ReasonRequiredSkills  Reason = "required-skill-overlap"
	ReasonPreferredSkills Reason = "preferred-skill-overlap"
	ReasonLocation        Reason = "location-match"
	ReasonSector          Reason = "sector-match"
)

// Breakdown exposes each component of a score.
type Breakdown struct {
	RequiredCoverage  float64  `json:"requiredCoverage"`
	PreferredCoverage float64  `json:"preferredCoverage"`
	Skills            float64  `json:"skills"`
	Location          float64  `json:"location"`
	Sector            float64  `json:"sector"`
	MatchedRequired   []string `json:"matchedRequired,omitempty"`
	MatchedPreferred  []string `json:"matchedPreferred,omitempty"`
	MissingRequired   []string `json:"missingRequired,omitempty"`
}

type Match struct {
	Opportunity catalog.Opportunity `json:"opportunity"`
	Score       float64             `json:"score"`
	Reasons     []Reason            `json:"reasons"`
	Breakdown   Breakdown           `json:"breakdown"`
}

// Scorer computes a weighted match between a canonical profile and an
// opportunity. It holds no state.
type Scorer struct{}

// Score never fails for canonical input. A candidate with no required and no
// preferred skill in common scores 0 whatever the location and sector.
func (Scorer) Score(p profiles.Profile, o catalog.Opportunity) Match {
	var b Breakdown
	b.MatchedRequired, b.MissingRequired = overlap(p, o.RequiredSkills)
	b.MatchedPreferred, _ = overlap(p, o.PreferredSkills)
	b.RequiredCoverage = coverage(len(b.MatchedRequired), len(o.RequiredSkills))
	b.PreferredCoverage = coverage(len(b.MatchedPreferred), len(o.PreferredSkills))
	b.Skills = (WeightRequired*b.RequiredCoverage + WeightPreferred*b.PreferredCoverage) / (WeightRequired + WeightPreferred)
	b.Location = locationScore(p.Location, o.LocationKey)
	if p.InterestedIn(o.Sector) {
		b.Sector = 1
	}

	m := Match{Opportunity: o, Breakdown: b, Reasons: []Reason{}}
	if len(b.MatchedRequired) == 0 && len(b.MatchedPreferred) == 0 {
		return m
	}
	sum := WeightRequired*b.RequiredCoverage +
		WeightPreferred*b.PreferredCoverage +
		WeightLocation*b.Location +
		WeightSector*b.Sector
	m.Score = round(clamp(sum))
	m.Reasons = reasons(b)
	return m
}

type contribution struct {
	reason Reason
	value  float64
	rank   int
}

// reasons lists the codes whose component passed the threshold, largest
// contribution first; equal contributions keep skills, location, sector order.
func reasons(b Breakdown) []Reason {
	var picked []contribution
	if b.RequiredCoverage > 0 && b.Skills >= ReasonThreshold {
		picked = append(picked, contribution{ReasonRequiredSkills, WeightRequired * b.RequiredCoverage, 0})
	}
	if b.PreferredCoverage >= ReasonThreshold {
		picked = append(picked, contribution{ReasonPreferredSkills, WeightPreferred * b.PreferredCoverage, 1})
	}
	if b.Location >= ReasonThreshold {
		picked = append(picked, contribution{ReasonLocation, WeightLocation * b.Location, 2})
	}
	if b.Sector >= ReasonThreshold {
		picked = append(picked, contribution{ReasonSector, WeightSector * b.Sector, 3})
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].value != picked[j].value {
			return picked[i].value > picked[j].value
		}
		return picked[i].rank < picked[j].rank
	})
	out := make([]Reason, 0, len(picked))
	for _, c := range picked {
		out = append(out, c.reason)
	}
	return out
}

func overlap(p profiles.Profile, skills []string) (matched, missing []string) {
	for _, s := range skills {
		if p.HasSkill(s) {
			matched = append(matched, s)
		} else {
			missing = append(missing, s)
		}
	}
	return matched, missing
}

func coverage(matched, total int) float64 {
	return float64(matched) / float64(max(1, total))
}

func locationScore(profileLoc, oppLoc string) float64 {
	switch {
	case profileLoc == profiles.LocationAny,
		oppLoc == profiles.LocationRemote,
		profileLoc != "" && profileLoc == oppLoc:
		return 1
	}
	return 0
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// round trims float noise so equal scores compare equal when sorting.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
