// Package runstate persists the RunConfig that chains one capture run to the next.
package runstate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"GazetteScanner/internal/config"
	"GazetteScanner/internal/domain"
	"GazetteScanner/internal/ports"
)

// FileStore keeps the RunConfig in a YAML file.
type FileStore struct {
	path string
}

var _ ports.RunStateStore = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) (domain.RunConfig, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.RunConfig{}, &domain.ConfigError{Field: s.path, Reason: "run config file not found"}
	}
	if err != nil {
		return domain.RunConfig{}, fmt.Errorf("read run config: %w", err)
	}
	return config.DecodeRunConfig(raw)
}

// Save replaces the file through a rename so readers never see a partial document.
func (s *FileStore) Save(_ context.Context, cfg domain.RunConfig) error {
	raw, err := config.EncodeRunConfig(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create run config dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write run config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace run config: %w", err)
	}
	return nil
}
