package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var hashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FileSourceStore keeps one copy of each ingested source file on local disk,
// named <content hash><ext>. The first write for a hash wins.
type FileSourceStore struct {
	dir string
}

// NewFileSourceStore creates the directory if it does not exist
func NewFileSourceStore(dir string) (*FileSourceStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create source dir: %w", err)
	}
	return &FileSourceStore{dir: dir}, nil
}

// Put stores raw under hash unless a copy already exists and returns its path.
// The write goes through a temp file and a rename so readers never see a
// partial file.
func (f *FileSourceStore) Put(ctx context.Context, hash, ext string, raw []byte) (string, error) {
	if !hashPattern.MatchString(hash) {
		return "", fmt.Errorf("invalid content hash %q", hash)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(f.dir, hash+ext)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(f.dir, hash+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write source: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close source: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("store source: %w", err)
	}
	return path, nil
}

// Path returns where the copy for hash would live
func (f *FileSourceStore) Path(hash, ext string) string {
	return filepath.Join(f.dir, hash+ext)
}
