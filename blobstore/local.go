package blobstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hupe1980/shufflego/internal/mmap"
)

// LocalStore implements Store on the local filesystem.
//
// Reads are mmap-backed: replaying a finalized container touches many
// small ranges and mapping it once beats a syscall per range.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	m, err := mmap.Open(filepath.Join(s.root, name))
	if err != nil {
		return nil, err
	}
	// Replay walks the file mostly front to back.
	_ = m.AdviseSequential()
	return &localBlob{m: m}, nil
}

// Create creates a blob for writing, truncating any previous content.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{f: f}, nil
}

// Delete removes a blob. Missing blobs are ignored.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(filepath.Join(s.root, name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Size() int64 {
	return b.m.Size()
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

type localWritableBlob struct {
	f *os.File
}

func (b *localWritableBlob) Write(p []byte) (int, error) {
	return b.f.Write(p)
}

func (b *localWritableBlob) Sync() error {
	return b.f.Sync()
}

func (b *localWritableBlob) Close() error {
	return b.f.Close()
}
