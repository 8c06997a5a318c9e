// Package sections reasons about which section/edition combinations a rule
// set can still select, so rule sets that cannot match a run are skipped.
package sections

import (
	"strings"

	"GazetteScanner/internal/domain"
)

// Combination is a section number optionally suffixed by its edition:
// "1" (ordinary), "1e" (extra edition), "1a" (supplement).
type Combination string

var canonical = []Combination{"1", "2", "3", "1e", "2e", "3e", "1a", "2a", "3a"}

var ordinary = []domain.Section{domain.Section1, domain.Section2, domain.Section3}

// Set is an unordered set of combinations.
type Set map[Combination]struct{}

func newSet(items ...Combination) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(c Combination) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in canonical order.
func (s Set) Sorted() []Combination {
	out := make([]Combination, 0, len(s))
	for _, c := range canonical {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Intersect returns the members present in both sets.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for c := range s {
		if other.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// AllCombinations returns the nine combinations of sections and editions.
func AllCombinations() Set {
	return newSet(canonical...)
}

// Requested expands the sections a run scans into the combinations it may
// download: ordinary sections as-is, "e" adds every extra-edition section
// and "1a" adds every supplement section.
func Requested(requested []domain.Section) Set {
	out := make(Set)
	hasExtra, hasSupplement := false, false
	for _, s := range requested {
		switch s {
		case domain.Section1, domain.Section2, domain.Section3:
			out[Combination(s)] = struct{}{}
		case domain.SectionExtra:
			hasExtra = true
		case domain.SectionSupplement:
			hasSupplement = true
		}
	}
	for _, s := range ordinary {
		if hasExtra {
			out[Combination(string(s)+"e")] = struct{}{}
		}
		if hasSupplement {
			out[Combination(string(s)+"a")] = struct{}{}
		}
	}
	return out
}

// Normalize lower-cases keywords and maps edition words onto the suffixes
// used by combinations.
func Normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		w = strings.ReplaceAll(w, "extra", "e")
		w = strings.ReplaceAll(w, "suplemento", "a")
		out = append(out, w)
	}
	return out
}

// Matching returns the combinations a section rule lets through. A
// combination matches a keyword list when one of its characters equals a
// whole normalized keyword: "1" and "extra" select, "1 extra" never does.
func Matching(include, exclude []string) Set {
	out := AllCombinations()

	if len(include) > 0 {
		keywords := keywordSet(include)
		for c := range out {
			if !overlaps(c, keywords) {
				delete(out, c)
			}
		}
	}

	if len(exclude) > 0 {
		keywords := keywordSet(exclude)
		for c := range out {
			if overlaps(c, keywords) {
				delete(out, c)
			}
		}
	}

	return out
}

// RemainingAfterFilters intersects the run's requested combinations with
// every section rule of rs. An empty result means rs cannot match this run.
func RemainingAfterFilters(requested []domain.Section, rs domain.RuleSet) Set {
	remaining := Requested(requested)
	for _, rule := range rs.SectionRules() {
		remaining = remaining.Intersect(Matching(rule.Include, rule.Exclude))
		if len(remaining) == 0 {
			break
		}
	}
	return remaining
}

func keywordSet(words []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range Normalize(words) {
		out[w] = struct{}{}
	}
	return out
}

func overlaps(c Combination, keywords map[string]struct{}) bool {
	for _, r := range string(c) {
		if _, ok := keywords[string(r)]; ok {
			return true
		}
	}
	return false
}
