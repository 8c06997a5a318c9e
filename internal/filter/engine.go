// Package filter selects the structured entries each subscriber rule set is
// interested in.
package filter

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/sections"
)

// Engine evaluates rule sets against batches of structured entries.
type Engine struct {
	logger *slog.Logger
}

// NewEngine builds an engine; log may be nil.
func NewEngine(log *slog.Logger) *Engine {
	return &Engine{logger: log}
}

// Prune drops rule sets whose section rules leave no combination of the
// requested sections. Skipped rule sets are returned for reporting.
func (e *Engine) Prune(requested []domain.Section, ruleSets []domain.RuleSet) (active, skipped []domain.RuleSet) {
	for _, rs := range ruleSets {
		if len(sections.RemainingAfterFilters(requested, rs)) == 0 {
			skipped = append(skipped, rs)
			continue
		}
		active = append(active, rs)
	}
	e.debug("pruned rule sets", "active", len(active), "skipped", len(skipped))
	return active, skipped
}

// Evaluate returns the entries satisfying every rule of rs, in input order.
func (e *Engine) Evaluate(rs domain.RuleSet, entries []domain.StructuredEntry) []domain.StructuredEntry {
	survivors := make([]domain.StructuredEntry, len(entries))
	copy(survivors, entries)

	fold := cases.Fold()
	for _, rule := range rs.Rules {
		include := foldAll(fold, rule.Include)
		exclude := foldAll(fold, rule.Exclude)

		kept := survivors[:0:0]
		for _, entry := range survivors {
			value, ok := entry.Field(rule.Field)
			if !ok {
				continue
			}
			folded := fold.String(norm.NFC.String(value))
			if len(include) > 0 && !containsAny(folded, include) {
				continue
			}
			if len(exclude) > 0 && containsAny(folded, exclude) {
				continue
			}
			kept = append(kept, entry)
		}
		survivors = kept

		if len(survivors) == 0 {
			e.debug("rule set exhausted", "rule_set", rs.Meta.Name, "field", rule.Field)
			return nil
		}
	}

	return survivors
}

// EvaluateAll runs Evaluate for every rule set; result i belongs to ruleSets[i].
func (e *Engine) EvaluateAll(ruleSets []domain.RuleSet, entries []domain.StructuredEntry) [][]domain.StructuredEntry {
	out := make([][]domain.StructuredEntry, len(ruleSets))
	for i, rs := range ruleSets {
		out[i] = e.Evaluate(rs, entries)
	}
	return out
}

func foldAll(fold cases.Caser, words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		out = append(out, fold.String(norm.NFC.String(w)))
	}
	return out
}

func containsAny(value string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(value, k) {
			return true
		}
	}
	return false
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
