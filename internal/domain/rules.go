package domain

// SectionField is the StructuredEntry field holding the gazette section.
const SectionField = "secao"

// Rule filters one field: any include keyword must appear, no exclude keyword may appear.
type Rule struct {
	Field   string   `json:"column_name" yaml:"column_name"`
	Include []string `json:"positive_filter,omitempty" yaml:"positive_filter,omitempty"`
	Exclude []string `json:"negative_filter,omitempty" yaml:"negative_filter,omitempty"`
}

// RuleSetMeta carries delivery metadata, kept apart from the predicates.
type RuleSetMeta struct {
	Name        string
	Publication string
	Channel     string
	Description string
}

// RuleSet is an ordered AND of rules. An empty rule list matches every entry.
type RuleSet struct {
	Meta  RuleSetMeta
	Rules []Rule
}

// SectionRules returns the rules that target the section field.
func (r RuleSet) SectionRules() []Rule {
	var out []Rule
	for _, rule := range r.Rules {
		if rule.Field == SectionField {
			out = append(out, rule)
		}
	}
	return out
}
