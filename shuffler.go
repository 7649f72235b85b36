package shufflego

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/hupe1980/shufflego/blobstore"
	"github.com/hupe1980/shufflego/container"
	"github.com/hupe1980/shufflego/internal/tempdir"
	"github.com/hupe1980/shufflego/record"
)

// Shuffler is the immutable result of a finished shuffle. It maps each
// partition key to the groups holding its rows and replays any key's
// batches on demand without touching the others.
//
// A Shuffler is safe for concurrent use; every KeyIter call opens an
// independent stream over the backing file.
type Shuffler struct {
	schema    *record.Schema
	store     blobstore.Store
	blobName  string
	groups    map[uint32]*keyGroups
	numGroups int
	logger    *Logger
	tmp       *tempdir.Dir
	closed    atomic.Bool
}

// Schema returns the schema of the shuffled batches.
func (s *Shuffler) Schema() *record.Schema {
	return s.schema
}

// KeyIter lazily replays the batches inserted under key, in the order
// their groups were written. The second return value reports whether the
// key holds any rows; an absent key is not an error.
//
// The caller must Close the returned stream; closing it releases the
// underlying blob handle.
func (s *Shuffler) KeyIter(ctx context.Context, key uint32) (*container.BatchStream, bool, error) {
	kg, ok := s.groups[key]
	if !ok {
		return nil, false, nil
	}
	s.logger.LogReplay(ctx, key, len(kg.ids))

	blob, err := s.store.Open(ctx, s.blobName)
	if err != nil {
		return nil, true, fmt.Errorf("shufflego: open backing file %q: %w", s.blobName, err)
	}
	reader, err := container.OpenReader(ctx, blob)
	if err != nil {
		_ = blob.Close()
		return nil, true, fmt.Errorf("shufflego: open backing file %q: %w", s.blobName, err)
	}

	stream := reader.Stream(ctx, kg.set.Contains)
	stream.OnClose(reader.Close)
	return stream, true, nil
}

// Keys returns all keys holding at least one row, in ascending order.
func (s *Shuffler) Keys() []uint32 {
	keys := make([]uint32, 0, len(s.groups))
	for key := range s.groups {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// Groups returns the ids of the groups belonging to key, in write
// order. The second return value reports whether the key exists.
func (s *Shuffler) Groups(key uint32) ([]uint32, bool) {
	kg, ok := s.groups[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(kg.ids), true
}

// NumGroups returns the total number of groups in the backing file.
func (s *Shuffler) NumGroups() int {
	return s.numGroups
}

// Close releases the shuffler's hold on the backing storage. When the
// shuffler owns its temp directory, the backing file is removed.
// Close is idempotent; streams must be closed before the shuffler.
func (s *Shuffler) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.tmp != nil {
		return s.tmp.Release()
	}
	return nil
}
