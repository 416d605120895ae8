package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultMaxObjectBytes caps a single download (50 MiB).
const DefaultMaxObjectBytes = 50 * 1024 * 1024

// ObjectStore returns the complete raw bytes of a stored attachment.
type ObjectStore interface {
	DownloadBytes(ctx context.Context, ref string) ([]byte, error)
}

// readCapped reads r fully, failing with ErrTooLarge past max bytes.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

// MemoryStore is an in-process ObjectStore for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

// Put stores a copy of data under ref.
func (m *MemoryStore) Put(ref string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[ref] = append([]byte(nil), data...)
}

// DownloadBytes implements ObjectStore. The returned slice is a copy.
func (m *MemoryStore) DownloadBytes(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapDownloadError(err, ref)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[ref]
	if !ok {
		return nil, NewStorageError(ErrNotFound, "download", ref, fmt.Errorf("no object %q", ref))
	}
	return append([]byte(nil), data...), nil
}

// FSStore serves objects from files under a root directory.
type FSStore struct {
	root     string
	maxBytes int64
}

// NewFSStore creates an FSStore rooted at root.
func NewFSStore(root string, maxBytes int64) (*FSStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, WrapInitError(err, "fs")
	}
	if !info.IsDir() {
		return nil, NewStorageError(ErrNotFound, "init", "fs", fmt.Errorf("%s is not a directory", root))
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}
	return &FSStore{root: root, maxBytes: maxBytes}, nil
}

// DownloadBytes implements ObjectStore. Refs are slash-separated paths
// relative to the root and may not escape it.
func (s *FSStore) DownloadBytes(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, WrapDownloadError(err, ref)
	}
	clean := filepath.Clean("/" + strings.TrimLeft(ref, "/"))
	f, err := os.Open(filepath.Join(s.root, clean))
	if err != nil {
		return nil, WrapDownloadError(err, ref)
	}
	defer f.Close()

	data, err := readCapped(f, s.maxBytes)
	if err != nil {
		return nil, WrapDownloadError(err, ref)
	}
	return data, nil
}

// Verify implementations satisfy ObjectStore.
var (
	_ ObjectStore = (*MemoryStore)(nil)
	_ ObjectStore = (*FSStore)(nil)
	_ ObjectStore = (*S3Store)(nil)
)
