// Package file implements the default snapshot sink: a document on the local
// filesystem replaced atomically on every write.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vessel-track-lab/internal/domain"
	"vessel-track-lab/internal/storage"
)

const defaultPerm os.FileMode = 0o644

// Sink writes snapshots to a single path.
type Sink struct {
	path string
}

// NewSink creates a sink that replaces the document at path.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Compile-time interface check.
var _ storage.SnapshotSink = (*Sink)(nil)

// Path returns the output path.
func (s *Sink) Path() string {
	return s.path
}

// Replace writes the document to a temp file and renames it over the output
// path, so pollers see either the previous or the new document.
func (s *Sink) Replace(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteAtomic(s.path, snap.Document, defaultPerm)
}

// WriteAtomic replaces the content of path with data.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}
