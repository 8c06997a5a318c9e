// Package ledger provides the backends that remember which gazette entries
// were already captured: a local append-only file, Redis, DynamoDB and SQL.
package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"GazetteScanner/internal/ports"
)

// FileLedger stores one identifier per line; ref is a file name relative to dir.
type FileLedger struct {
	dir string
}

var _ ports.Ledger = (*FileLedger)(nil)

// NewFileLedger roots ledger files at dir; an empty dir uses ref as given.
func NewFileLedger(dir string) *FileLedger {
	return &FileLedger{dir: dir}
}

// Load reads every identifier; a missing file is an empty ledger.
func (l *FileLedger) Load(_ context.Context, ref string) (map[string]struct{}, error) {
	f, err := os.Open(l.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	ids := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			ids[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return ids, nil
}

// Append adds id unless it is already recorded.
func (l *FileLedger) Append(ctx context.Context, ref, id string) error {
	ids, err := l.Load(ctx, ref)
	if err != nil {
		return err
	}
	if _, ok := ids[id]; ok {
		return nil
	}

	path := l.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// Clear truncates the ledger file.
func (l *FileLedger) Clear(_ context.Context, ref string) error {
	path := l.path(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	return nil
}

func (l *FileLedger) path(ref string) string {
	if l.dir == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(l.dir, ref)
}
