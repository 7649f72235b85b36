package shufflego

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/shufflego/blobstore"
	"github.com/hupe1980/shufflego/container"
	"github.com/hupe1980/shufflego/internal/tempdir"
	"github.com/hupe1980/shufflego/record"
)

// keyBuffer holds the not-yet-flushed batches of one partition key.
// Each key has its own lock, so inserts to distinct keys do not contend.
type keyBuffer struct {
	mu      sync.Mutex
	batches []*record.Batch
	rows    int
}

// keyGroups records which groups in the backing file belong to one key.
// ids preserve write order; set is the same ids as a replay predicate.
type keyGroups struct {
	ids []uint32
	set *roaring.Bitmap
}

// ShufflerBuilder ingests record batches under partition keys and spills
// them as groups to a single backing file.
//
// Insert is safe for concurrent use. Finish must not run concurrently
// with Insert; the builder latches its state so misuse fails fast
// instead of corrupting the key-to-group mapping.
type ShufflerBuilder struct {
	ctx       context.Context
	schema    *record.Schema
	flushSize int
	logger    *Logger

	keys sync.Map // uint32 -> *keyBuffer

	finished atomic.Bool
	failed   atomic.Bool

	mu     sync.Mutex // guards writer, blob, and groups
	writer *container.Writer
	blob   blobstore.WritableBlob
	groups map[uint32]*keyGroups

	store    blobstore.Store
	blobName string
	tmp      *tempdir.Dir // nil when the caller supplied a store
}

// NewShufflerBuilder creates a builder for the given schema.
//
// flushSize is the per-key row threshold: once a key has buffered at
// least that many rows, the buffer is spilled as one group. The ctx is
// used to create the backing blob and for log events.
func NewShufflerBuilder(ctx context.Context, schema *record.Schema, flushSize int, optFns ...func(o *Options)) (*ShufflerBuilder, error) {
	if schema == nil {
		return nil, errors.New("shufflego: schema must not be nil")
	}
	if flushSize <= 0 {
		return nil, fmt.Errorf("shufflego: %w: %d", ErrInvalidFlushSize, flushSize)
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}

	var tmp *tempdir.Dir
	store := opts.Store
	if store == nil {
		var err error
		tmp, err = tempdir.New("shufflego-*")
		if err != nil {
			return nil, fmt.Errorf("shufflego: create temp dir: %w", err)
		}
		store = blobstore.NewLocalStore(tmp.Path())
	}

	blob, err := store.Create(ctx, opts.BlobName)
	if err != nil {
		if tmp != nil {
			_ = tmp.Release()
		}
		return nil, fmt.Errorf("shufflego: create backing blob %q: %w", opts.BlobName, err)
	}

	writer, err := container.NewWriter(blob, schema, func(o *container.WriterOptions) {
		o.Compression = opts.Compression
	})
	if err != nil {
		_ = blob.Close()
		if tmp != nil {
			_ = tmp.Release()
		}
		return nil, fmt.Errorf("shufflego: open container writer: %w", err)
	}

	return &ShufflerBuilder{
		ctx:       ctx,
		schema:    schema,
		flushSize: flushSize,
		logger:    opts.Logger,
		writer:    writer,
		blob:      blob,
		groups:    make(map[uint32]*keyGroups),
		store:     store,
		blobName:  opts.BlobName,
		tmp:       tmp,
	}, nil
}

// Schema returns the schema the builder was created with.
func (b *ShufflerBuilder) Schema() *record.Schema {
	return b.schema
}

// Insert buffers batch under key and spills the key's buffer as one
// group once it holds at least flushSize rows.
//
// The batch schema must equal the construction schema (metadata is
// ignored); a mismatch is rejected before anything is buffered.
func (b *ShufflerBuilder) Insert(key uint32, batch *record.Batch) error {
	if b.failed.Load() {
		return ErrBuilderFailed
	}
	if b.finished.Load() {
		return ErrBuilderFinished
	}
	if batch == nil || batch.NumRows() == 0 {
		return nil
	}
	if !b.schema.Equal(batch.Schema()) {
		return &ErrSchemaMismatch{Expected: b.schema, Actual: batch.Schema()}
	}

	kb := b.buffer(key)

	kb.mu.Lock()
	defer kb.mu.Unlock()

	kb.batches = append(kb.batches, batch)
	kb.rows += batch.NumRows()
	if kb.rows < b.flushSize {
		return nil
	}

	batches, rows := kb.batches, kb.rows
	kb.batches, kb.rows = nil, 0

	groupID, err := b.writeGroup(key, batches)
	b.logger.LogFlush(b.ctx, key, groupID, rows, err)
	return err
}

// Finish spills every remaining buffer, finalizes the backing file, and
// returns the immutable Shuffler. The builder is consumed; subsequent
// calls return ErrBuilderFinished.
func (b *ShufflerBuilder) Finish() (*Shuffler, error) {
	if b.failed.Load() {
		return nil, ErrBuilderFailed
	}
	if !b.finished.CompareAndSwap(false, true) {
		return nil, ErrBuilderFinished
	}

	// Steal remaining buffers under their own locks, then flush in
	// ascending key order so trailing group ids are deterministic.
	type pending struct {
		key     uint32
		batches []*record.Batch
		rows    int
	}
	var drained []pending
	b.keys.Range(func(k, v any) bool {
		kb := v.(*keyBuffer)
		kb.mu.Lock()
		if len(kb.batches) > 0 {
			drained = append(drained, pending{key: k.(uint32), batches: kb.batches, rows: kb.rows})
			kb.batches, kb.rows = nil, 0
		}
		kb.mu.Unlock()
		return true
	})
	slices.SortFunc(drained, func(a, c pending) int {
		if a.key < c.key {
			return -1
		}
		if a.key > c.key {
			return 1
		}
		return 0
	})

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range drained {
		groupID, err := b.writeGroupLocked(p.key, p.batches)
		b.logger.LogFlush(b.ctx, p.key, groupID, p.rows, err)
		if err != nil {
			b.logger.LogFinish(b.ctx, len(b.groups), 0, err)
			_ = b.releaseLocked()
			return nil, err
		}
	}

	if err := b.writer.Finish(); err != nil {
		b.failed.Store(true)
		err = fmt.Errorf("shufflego: finalize backing file %q: %w", b.blobName, err)
		b.logger.LogFinish(b.ctx, len(b.groups), 0, err)
		_ = b.releaseLocked()
		return nil, err
	}
	if err := b.blob.Sync(); err != nil {
		b.failed.Store(true)
		_ = b.releaseLocked()
		return nil, fmt.Errorf("shufflego: sync backing file %q: %w", b.blobName, err)
	}
	if err := b.blob.Close(); err != nil {
		b.failed.Store(true)
		b.blob = nil
		_ = b.releaseLocked()
		return nil, fmt.Errorf("shufflego: close backing file %q: %w", b.blobName, err)
	}
	b.blob = nil

	numGroups := 0
	for _, kg := range b.groups {
		numGroups += len(kg.ids)
	}
	b.logger.LogFinish(b.ctx, len(b.groups), numGroups, nil)

	s := &Shuffler{
		schema:    b.schema,
		store:     b.store,
		blobName:  b.blobName,
		groups:    b.groups,
		numGroups: numGroups,
		logger:    b.logger,
		tmp:       b.tmp, // ownership moves to the shuffler
	}
	b.groups = nil
	b.tmp = nil
	return s, nil
}

// Close releases the builder's hold on the backing storage when Finish
// never succeeded: the backing blob is closed and, when the builder owns
// its temp directory, the spilled file is removed with it. After a
// successful Finish both belong to the shuffler and Close is a no-op.
// Close is idempotent and consumes the builder.
func (b *ShufflerBuilder) Close() error {
	b.finished.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releaseLocked()
}

// releaseLocked drops the backing blob and temp directory. The caller
// holds b.mu. Both fields are nil once a successful Finish has moved
// ownership to the shuffler.
func (b *ShufflerBuilder) releaseLocked() error {
	var err error
	if b.blob != nil {
		err = b.blob.Close()
		b.blob = nil
	}
	if b.tmp != nil {
		releaseErr := b.tmp.Release()
		b.tmp = nil
		if err == nil {
			err = releaseErr
		}
	}
	if err != nil {
		return fmt.Errorf("shufflego: release backing storage: %w", err)
	}
	return nil
}

func (b *ShufflerBuilder) buffer(key uint32) *keyBuffer {
	if v, ok := b.keys.Load(key); ok {
		return v.(*keyBuffer)
	}
	v, _ := b.keys.LoadOrStore(key, &keyBuffer{})
	return v.(*keyBuffer)
}

// writeGroup takes the writer lock and appends one group for key.
// The caller holds the key's buffer lock.
func (b *ShufflerBuilder) writeGroup(key uint32, batches []*record.Batch) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeGroupLocked(key, batches)
}

func (b *ShufflerBuilder) writeGroupLocked(key uint32, batches []*record.Batch) (uint32, error) {
	groupID, err := b.writer.WriteGroup(batches)
	if err != nil {
		if errors.Is(err, container.ErrWriterFinished) {
			return 0, ErrBuilderFinished
		}
		b.failed.Store(true)
		return 0, fmt.Errorf("shufflego: write group for key %d: %w: %w", key, ErrBuilderFailed, err)
	}

	kg := b.groups[key]
	if kg == nil {
		kg = &keyGroups{set: roaring.New()}
		b.groups[key] = kg
	}
	kg.ids = append(kg.ids, groupID)
	kg.set.Add(groupID)
	return groupID, nil
}
