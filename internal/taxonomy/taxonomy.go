// Package taxonomy folds free-text skills, sectors, locations and education
// phrases onto a canonical vocabulary loaded from YAML.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the YAML shape of a vocabulary file.
type File struct {
	Skills    map[string][]string `yaml:"skills"`
	Sectors   map[string][]string `yaml:"sectors"`
	Locations map[string][]string `yaml:"locations"`
	Education map[string][]string `yaml:"education"`
}

// Taxonomy is an immutable alias table. The zero value folds text but maps no aliases.
type Taxonomy struct {
	skills    map[string]string
	sectors   map[string]string
	locations map[string]string
	education map[string]string
	// education aliases sorted longest first for phrase scanning
	educationAliases []string
}

var (
	defaultOnce sync.Once
	defaultTax  *Taxonomy
)

// Default returns the embedded vocabulary.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("taxonomy: embedded default invalid: %v", err))
		}
		defaultTax = t
	})
	return defaultTax
}

// Load returns the default vocabulary overlaid with the file at path.
// An empty path yields Default().
func Load(path string) (*Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	var base, overlay File
	if err := yaml.Unmarshal(defaultYAML, &base); err != nil {
		return nil, fmt.Errorf("parse default taxonomy: %w", err)
	}
	if err := yaml.Unmarshal(b, &overlay); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return build(merge(base, overlay))
}

// Parse builds a Taxonomy from YAML bytes.
func Parse(data []byte) (*Taxonomy, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	return build(f)
}

func merge(base, overlay File) File {
	base.Skills = mergeSection(base.Skills, overlay.Skills)
	base.Sectors = mergeSection(base.Sectors, overlay.Sectors)
	base.Locations = mergeSection(base.Locations, overlay.Locations)
	base.Education = mergeSection(base.Education, overlay.Education)
	return base
}

func mergeSection(base, overlay map[string][]string) map[string][]string {
	if base == nil {
		base = make(map[string][]string, len(overlay))
	}
	for canonical, aliases := range overlay {
		base[canonical] = append(base[canonical], aliases...)
	}
	return base
}

func build(f File) (*Taxonomy, error) {
	t := &Taxonomy{}
	var err error
	if t.skills, err = section("skills", f.Skills); err != nil {
		return nil, err
	}
	if t.sectors, err = section("sectors", f.Sectors); err != nil {
		return nil, err
	}
	if t.locations, err = section("locations", f.Locations); err != nil {
		return nil, err
	}
	if t.education, err = section("education", f.Education); err != nil {
		return nil, err
	}
	for alias := range t.education {
		t.educationAliases = append(t.educationAliases, alias)
	}
	sort.Slice(t.educationAliases, func(i, j int) bool {
		a, b := t.educationAliases[i], t.educationAliases[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return t, nil
}

// section inverts canonical → aliases into alias → canonical. An alias that
// points at two different canonicals is a configuration error.
func section(name string, entries map[string][]string) (map[string]string, error) {
	out := make(map[string]string, len(entries)*3)
	canonicals := make([]string, 0, len(entries))
	for c := range entries {
		canonicals = append(canonicals, c)
	}
	sort.Strings(canonicals)
	for _, raw := range canonicals {
		canonical := Fold(raw)
		if canonical == "" {
			return nil, fmt.Errorf("taxonomy %s: empty canonical term", name)
		}
		out[canonical] = canonical
		for _, a := range entries[raw] {
			alias := Fold(a)
			if alias == "" {
				continue
			}
			if prev, ok := out[alias]; ok && prev != canonical {
				return nil, fmt.Errorf("taxonomy %s: alias %q maps to both %q and %q", name, alias, prev, canonical)
			}
			out[alias] = canonical
		}
	}
	return out, nil
}

// Fold lower-cases, trims and collapses internal whitespace.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Skill returns the canonical spelling of a skill tag, or "" for blank input.
func (t *Taxonomy) Skill(raw string) string {
	return t.lookup(t.skills, Fold(raw))
}

// Sector returns the canonical sector name, or "" for blank input.
func (t *Taxonomy) Sector(raw string) string {
	return t.lookup(t.sectors, Fold(raw))
}

// Location returns the canonical city for a place string such as
// "Bangalore, Karnataka". Only the first comma-separated segment is used.
func (t *Taxonomy) Location(raw string) string {
	first, _, _ := strings.Cut(raw, ",")
	return t.lookup(t.locations, Fold(first))
}

// Education maps a free-text education phrase like "Undergraduate (3rd Year)"
// or "B.Tech" onto a canonical level key. The longest alias found as a whole
// word sequence wins.
func (t *Taxonomy) Education(raw string) (string, bool) {
	folded := Fold(raw)
	if folded == "" || t == nil {
		return "", false
	}
	if c, ok := t.education[folded]; ok {
		return c, true
	}
	if c, ok := t.education[strings.ReplaceAll(folded, "_", " ")]; ok {
		return c, true
	}
	padded := " " + wordsOnly(folded) + " "
	for _, alias := range t.educationAliases {
		if strings.Contains(padded, " "+wordsOnly(alias)+" ") {
			return t.education[alias], true
		}
	}
	return "", false
}

func (t *Taxonomy) lookup(table map[string]string, folded string) string {
	if folded == "" {
		return ""
	}
	if t != nil {
		if c, ok := table[folded]; ok {
			return c
		}
	}
	return folded
}

// wordsOnly replaces punctuation other than '.', '\'', '/' and '+' with spaces
// so "(3rd year)" tokenizes cleanly while "b.tech" survives.
func wordsOnly(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == '.', r == '\'', r == '/', r == '+':
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
