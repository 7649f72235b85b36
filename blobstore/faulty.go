package blobstore

import (
	"context"
	"errors"
	"sync"
)

// ErrInjected is the default error produced by a FaultyStore.
var ErrInjected = errors.New("blobstore: injected fault")

// FaultyStore wraps a Store and injects write failures. It exists for
// testing failure paths; production code should never construct one.
type FaultyStore struct {
	Inner Store

	// Err is returned on injected failures; defaults to ErrInjected.
	Err error

	mu             sync.Mutex
	failAfterBytes int64 // -1: never
	written        int64
	failOnClose    bool
}

// NewFaultyStore creates a FaultyStore with no faults armed.
func NewFaultyStore(inner Store) *FaultyStore {
	return &FaultyStore{Inner: inner, failAfterBytes: -1}
}

// FailAfterBytes arms a write failure once n total bytes have been written
// across all blobs created through this store.
func (s *FaultyStore) FailAfterBytes(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfterBytes = n
}

// FailOnClose arms a failure on WritableBlob.Close.
func (s *FaultyStore) FailOnClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failOnClose = true
}

func (s *FaultyStore) err() error {
	if s.Err != nil {
		return s.Err
	}
	return ErrInjected
}

// Open delegates to the inner store.
func (s *FaultyStore) Open(ctx context.Context, name string) (Blob, error) {
	return s.Inner.Open(ctx, name)
}

// Create wraps the inner writable blob with fault injection.
func (s *FaultyStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	wb, err := s.Inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &faultyWritableBlob{store: s, inner: wb}, nil
}

// Delete delegates to the inner store.
func (s *FaultyStore) Delete(ctx context.Context, name string) error {
	return s.Inner.Delete(ctx, name)
}

type faultyWritableBlob struct {
	store *FaultyStore
	inner WritableBlob
}

func (b *faultyWritableBlob) Write(p []byte) (int, error) {
	s := b.store
	s.mu.Lock()
	exceeded := s.failAfterBytes >= 0 && s.written+int64(len(p)) > s.failAfterBytes
	if !exceeded {
		s.written += int64(len(p))
	}
	s.mu.Unlock()

	if exceeded {
		return 0, s.err()
	}
	return b.inner.Write(p)
}

func (b *faultyWritableBlob) Sync() error {
	return b.inner.Sync()
}

func (b *faultyWritableBlob) Close() error {
	s := b.store
	s.mu.Lock()
	fail := s.failOnClose
	s.mu.Unlock()

	if fail {
		_ = b.inner.Close()
		return s.err()
	}
	return b.inner.Close()
}
