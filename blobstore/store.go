package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store provides access to blobs by name.
type Store interface {
	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for one sequential write. The blob's content
	// becomes readable once the WritableBlob is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
}

// Blob is a read-only handle supporting concurrent range reads.
type Blob interface {
	// ReadAt reads len(p) bytes at offset off, io.ReaderAt semantics.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the blob size in bytes.
	Size() int64
	// Close releases the handle.
	Close() error
}

// WritableBlob is a sequential, write-once handle. Close finalizes the
// blob; a blob that was never closed may not be readable at all.
type WritableBlob interface {
	io.Writer
	// Sync forces buffered data to stable storage where that is meaningful.
	Sync() error
	// Close finalizes the blob.
	Close() error
}
