package rules

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// FileSource reads filter rows from a YAML or JSON file.
type FileSource struct {
	path        string
	publication string
}

var _ ports.RuleSetSource = (*FileSource)(nil)

// NewFileSource keeps only rows whose casa equals publication; empty keeps all.
func NewFileSource(path, publication string) *FileSource {
	return &FileSource{path: path, publication: publication}
}

func (s *FileSource) Load(_ context.Context) ([]domain.RuleSet, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var rows []Row
	if err := yaml.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	return Group(byPublication(rows, s.publication))
}

func byPublication(rows []Row, publication string) []Row {
	if publication == "" {
		return rows
	}
	kept := rows[:0:0]
	for _, r := range rows {
		if r.Publication == publication {
			kept = append(kept, r)
		}
	}
	return kept
}
