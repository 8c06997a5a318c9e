// Package storage persists captured entries on local disk or S3.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// LocalStore writes one JSON file per entry under root/<publication day>/.
type LocalStore struct {
	root string
}

var _ ports.EntryStore = (*LocalStore)(nil)

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Save writes the entry; slashes in key become underscores.
func (s *LocalStore) Save(_ context.Context, key string, entry domain.CapturedEntry) error {
	dir := filepath.Join(s.root, folder(entry))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}

	body, err := encode(entry)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, strings.ReplaceAll(key, "/", "_"))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write entry %s: %w", path, err)
	}
	return nil
}

// folder is the publication day (YYYY-MM-DD), or capt_<capture day> when unknown.
func folder(entry domain.CapturedEntry) string {
	if value, ok := entry.Fields.Field("pub_date"); ok {
		if day, err := time.Parse("02/01/2006", value); err == nil {
			return day.Format("2006-01-02")
		}
	}
	return "capt_" + entry.CapturedAt.Format("2006-01-02")
}

func encode(entry domain.CapturedEntry) ([]byte, error) {
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry %s: %w", entry.URL, err)
	}
	return body, nil
}
