// Package rules loads subscriber rule sets from filter rows kept in a file
// or a SQL table. Each row is one field rule; rows sharing a filter number
// form a rule set.
package rules

import (
	"fmt"
	"strings"

	"GazetteScanner/internal/domain"
)

// Row is one line of the filters table.
type Row struct {
	FilterNumber   string `yaml:"filter_number" json:"filter_number"`
	Name           string `yaml:"nome" json:"nome"`
	Publication    string `yaml:"casa" json:"casa"`
	Channel        string `yaml:"channel" json:"channel"`
	Description    string `yaml:"description" json:"description"`
	ColumnName     string `yaml:"column_name" json:"column_name"`
	PositiveFilter string `yaml:"positive_filter" json:"positive_filter"`
	NegativeFilter string `yaml:"negative_filter" json:"negative_filter"`
}

// Group builds rule sets from rows, in order of first appearance.
// Rows of one group must agree on name, publication, channel and description.
func Group(rows []Row) ([]domain.RuleSet, error) {
	var order []string
	groups := make(map[string][]Row)
	for _, r := range rows {
		id := strings.TrimSpace(r.FilterNumber)
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], r)
	}

	sets := make([]domain.RuleSet, 0, len(order))
	for _, id := range order {
		group := groups[id]
		first := group[0]
		for _, r := range group[1:] {
			if field, ok := metaConflict(first, r); ok {
				return nil, fmt.Errorf("%w: filter %s has different values for %s", domain.ErrAmbiguousRuleSet, id, field)
			}
		}

		rs := domain.RuleSet{Meta: domain.RuleSetMeta{
			Name:        first.Name,
			Publication: first.Publication,
			Channel:     first.Channel,
			Description: first.Description,
		}}
		for _, r := range group {
			field := strings.TrimSpace(r.ColumnName)
			if field == "" {
				continue
			}
			rs.Rules = append(rs.Rules, domain.Rule{
				Field:   field,
				Include: Keywords(r.PositiveFilter),
				Exclude: Keywords(r.NegativeFilter),
			})
		}
		sets = append(sets, rs)
	}
	return sets, nil
}

func metaConflict(a, b Row) (string, bool) {
	switch {
	case a.Name != b.Name:
		return "nome", true
	case a.Publication != b.Publication:
		return "casa", true
	case a.Channel != b.Channel:
		return "channel", true
	case a.Description != b.Description:
		return "description", true
	}
	return "", false
}

// Keywords splits a ";"-separated list, dropping blanks.
func Keywords(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(csv, ";") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
