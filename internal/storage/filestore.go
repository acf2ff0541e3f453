// Package storage keeps uploaded ticket documents on local disk.
package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
)

// ErrTooLarge is returned when an upload exceeds the store's limit.
var ErrTooLarge = errors.New("file exceeds upload limit")

type FileStore struct {
	dir      string
	maxBytes int64
}

type SaveResult struct {
	StoragePath string // relative to the store root
	Size        int64
	Checksum    string // hex BLAKE3-256
}

func New(dir string, maxBytes int64) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, maxBytes: maxBytes}, nil
}

func (fs *FileStore) MaxBytes() int64 { return fs.maxBytes }

// Save streams r to disk, hashing as it writes. The blob lands under a
// two-character shard directory via temp file, fsync and rename.
func (fs *FileStore) Save(r io.Reader) (*SaveResult, error) {
	id := uuid.NewString()
	rel := filepath.Join(id[:2], id)
	full := filepath.Join(fs.dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, fmt.Errorf("create shard dir: %w", err)
	}
	tmp := full + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(tmp)
	}

	hasher := blake3.New()
	src := io.TeeReader(io.LimitReader(r, fs.maxBytes+1), hasher)
	size, err := io.Copy(f, src)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("write blob: %w", err)
	}
	if size > fs.maxBytes {
		cleanup()
		return nil, ErrTooLarge
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return nil, fmt.Errorf("fsync blob: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("rename blob: %w", err)
	}

	return &SaveResult{
		StoragePath: filepath.ToSlash(rel),
		Size:        size,
		Checksum:    hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Open returns the blob for reading. The caller closes it.
func (fs *FileStore) Open(storagePath string) (*os.File, error) {
	full, err := fs.resolve(storagePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("document content %s missing", storagePath)
		}
		return nil, fmt.Errorf("open blob %s: %w", storagePath, err)
	}
	return f, nil
}

// Delete removes the blob. Missing blobs are not an error.
func (fs *FileStore) Delete(storagePath string) error {
	full, err := fs.resolve(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", storagePath, err)
	}
	return nil
}

// resolve rejects paths that would escape the store root.
func (fs *FileStore) resolve(storagePath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(storagePath))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", apperr.NotFound("document content %s missing", storagePath)
	}
	return filepath.Join(fs.dir, clean), nil
}
