package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// Persister stores and retrieves a full snapshot of all tables.
type Persister interface {
	Load(ctx context.Context) (Tables, error)
	Save(ctx context.Context, tables Tables) error
}

// FilePersister keeps the snapshot as an indented JSON document:
//
//	{"tasks": [{"id": "...", "title": "..."}]}
type FilePersister struct {
	path string
}

var _ Persister = (*FilePersister)(nil)

// NewFilePersister creates a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path returns the snapshot file location.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads and decodes the snapshot file.
func (p *FilePersister) Load(_ context.Context) (Tables, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var tables Tables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	return tables, nil
}

// Save replaces the snapshot file atomically.
func (p *FilePersister) Save(ctx context.Context, tables Tables) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tables == nil {
		tables = Tables{}
	}

	data, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := WriteFileAtomic(p.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", p.path, err)
	}
	return nil
}

// WriteFileAtomic replaces path with data via a synced temp file in the
// same directory, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, perm)
}
