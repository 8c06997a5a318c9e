package domain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section is a gazette subdivision as encoded in listing URLs.
type Section string

const (
	Section1          Section = "1"
	Section2          Section = "2"
	Section3          Section = "3"
	SectionExtra      Section = "e"
	SectionSupplement Section = "1a"

	// SectionAll is the config sentinel expanded to every known section.
	SectionAll Section = "all"
)

// KnownSections lists every section in listing order.
var KnownSections = []Section{Section1, Section2, Section3, SectionExtra, SectionSupplement}

// ParseSection accepts the string codes ("1", "e", "1a", ...) and the "all" sentinel.
func ParseSection(value string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(value)))
	if s == SectionAll {
		return s, nil
	}
	for _, known := range KnownSections {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, value)
}

func (s Section) String() string {
	return string(s)
}

// SectionList is an ordered set of sections that may carry the "all" sentinel.
type SectionList []Section

// Expand resolves the "all" sentinel and drops duplicates, keeping first-seen order.
func (l SectionList) Expand() []Section {
	for _, s := range l {
		if s == SectionAll {
			out := make([]Section, len(KnownSections))
			copy(out, KnownSections)
			return out
		}
	}

	seen := make(map[Section]struct{}, len(l))
	out := make([]Section, 0, len(l))
	for _, s := range l {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Contains reports whether s is in the expanded list.
func (l SectionList) Contains(s Section) bool {
	for _, item := range l.Expand() {
		if item == s {
			return true
		}
	}
	return false
}

// UnmarshalYAML accepts a scalar ("all", 1, "e") or a sequence of scalars.
func (l *SectionList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s, err := ParseSection(node.Value)
		if err != nil {
			return err
		}
		*l = SectionList{s}
		return nil
	case yaml.SequenceNode:
		out := make(SectionList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: line %d", ErrUnknownSection, item.Line)
			}
			s, err := ParseSection(item.Value)
			if err != nil {
				return err
			}
			out = append(out, s)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("%w: line %d", ErrUnknownSection, node.Line)
	}
}
