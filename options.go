package shufflego

import (
	"github.com/hupe1980/shufflego/blobstore"
	"github.com/hupe1980/shufflego/container"
)

// Options contains configuration for a ShufflerBuilder.
type Options struct {
	// Store is the blob store holding the backing file. If nil, a
	// LocalStore over a private temp directory is used and removed
	// when the shuffler is closed.
	Store blobstore.Store

	// BlobName is the name of the backing file within Store.
	BlobName string

	// Compression selects the per-group codec for spilled batches.
	// Default: container.CompressionNone.
	Compression container.Compression

	// Logger receives structured flush/finish/replay events.
	// Default: NoopLogger().
	Logger *Logger
}

// DefaultOptions returns default builder options.
var DefaultOptions = Options{
	BlobName:    "shuffle.bin",
	Compression: container.CompressionNone,
}

// WithStore directs the backing file to an external blob store under the
// given name. The caller owns the store; the backing blob is not deleted
// on Close.
func WithStore(store blobstore.Store, name string) func(o *Options) {
	return func(o *Options) {
		o.Store = store
		if name != "" {
			o.BlobName = name
		}
	}
}

// WithCompression sets the per-group compression codec.
func WithCompression(c container.Compression) func(o *Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}
