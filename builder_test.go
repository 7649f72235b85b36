package shufflego

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/shufflego/blobstore"
	"github.com/hupe1980/shufflego/container"
	"github.com/hupe1980/shufflego/record"
)

func rowSchema() *record.Schema {
	return record.NewSchema([]record.Field{{Name: "a", Type: record.TypeUint32}})
}

func rowBatch(t *testing.T, vals ...uint32) *record.Batch {
	t.Helper()
	batch, err := record.NewBatch(rowSchema(), []record.Column{
		&record.Uint32Column{Values: vals},
	})
	require.NoError(t, err)
	return batch
}

func collectRows(t *testing.T, s *container.BatchStream) []uint32 {
	t.Helper()
	var rows []uint32
	for s.Next() {
		col, ok := s.Batch().Column(0).(*record.Uint32Column)
		require.True(t, ok)
		rows = append(rows, col.Values...)
	}
	require.NoError(t, s.Err())
	require.NoError(t, s.Close())
	return rows
}

func TestShuffleRoundRobinKeys(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4)
	require.NoError(t, err)

	for i := uint32(0); i < 20; i++ {
		require.NoError(t, builder.Insert(i%3, rowBatch(t, i)))
	}

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	assert.Equal(t, []uint32{0, 1, 2}, shuffler.Keys())
	assert.Equal(t, 6, shuffler.NumGroups())

	want := map[uint32][]uint32{
		0: {0, 3, 6, 9, 12, 15, 18},
		1: {1, 4, 7, 10, 13, 16, 19},
		2: {2, 5, 8, 11, 14, 17},
	}
	for key, wantRows := range want {
		ids, ok := shuffler.Groups(key)
		require.True(t, ok)
		assert.Len(t, ids, 2, "key %d", key)

		stream, ok, err := shuffler.KeyIter(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, wantRows, collectRows(t, stream), "key %d", key)
	}

	stream, ok, err := shuffler.KeyIter(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, stream)
}

func TestShuffleGroupIDsDisjoint(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 2)
	require.NoError(t, err)
	for i := uint32(0); i < 32; i++ {
		require.NoError(t, builder.Insert(i%5, rowBatch(t, i)))
	}

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	seen := make(map[uint32]uint32)
	total := 0
	for _, key := range shuffler.Keys() {
		ids, ok := shuffler.Groups(key)
		require.True(t, ok)
		for _, id := range ids {
			owner, dup := seen[id]
			require.False(t, dup, "group %d owned by keys %d and %d", id, owner, key)
			seen[id] = key
		}
		total += len(ids)
	}
	assert.Equal(t, shuffler.NumGroups(), total)

	// Ids are sequential from zero across the whole file.
	for id := uint32(0); int(id) < total; id++ {
		assert.Contains(t, seen, id)
	}
}

func TestShuffleBelowThresholdFlushesOnce(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 100)
	require.NoError(t, err)
	require.NoError(t, builder.Insert(9, rowBatch(t, 1, 2, 3)))

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	ids, ok := shuffler.Groups(9)
	require.True(t, ok)
	assert.Len(t, ids, 1)

	stream, ok, err := shuffler.KeyIter(ctx, 9)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2, 3}, collectRows(t, stream))
}

func TestShuffleReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 2)
	require.NoError(t, err)
	for i := uint32(0); i < 10; i++ {
		require.NoError(t, builder.Insert(i%2, rowBatch(t, i)))
	}

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	stream1, ok, err := shuffler.KeyIter(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	first := collectRows(t, stream1)

	stream2, ok, err := shuffler.KeyIter(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, collectRows(t, stream2))
}

func TestShuffleConcurrentProducers(t *testing.T) {
	ctx := context.Background()

	const (
		producers      = 8
		insertsPerProd = 200
		numKeys        = 4
	)

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 16)
	require.NoError(t, err)

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		p := p
		g.Go(func() error {
			for i := 0; i < insertsPerProd; i++ {
				val := uint32(p*insertsPerProd + i)
				if err := builder.Insert(val%numKeys, rowBatch(t, val)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	assert.Len(t, shuffler.Keys(), numKeys)

	seen := make(map[uint32]bool)
	totalGroups := 0
	for key := uint32(0); key < numKeys; key++ {
		ids, ok := shuffler.Groups(key)
		require.True(t, ok)
		for _, id := range ids {
			require.False(t, seen[id], "group %d assigned twice", id)
			seen[id] = true
		}
		totalGroups += len(ids)

		stream, ok, err := shuffler.KeyIter(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)

		rows := collectRows(t, stream)
		assert.Len(t, rows, producers*insertsPerProd/numKeys)
		for _, v := range rows {
			assert.Equal(t, key, v%numKeys)
		}
	}
	assert.Equal(t, totalGroups, shuffler.NumGroups())
}

func TestShuffleSchemaMismatch(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4)
	require.NoError(t, err)

	other := record.NewSchema([]record.Field{{Name: "b", Type: record.TypeUint64}})
	batch, err := record.NewBatch(other, []record.Column{
		&record.Uint64Column{Values: []uint64{1}},
	})
	require.NoError(t, err)

	err = builder.Insert(0, batch)
	var mismatch *ErrSchemaMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.Expected.Equal(rowSchema()))
	assert.True(t, mismatch.Actual.Equal(other))

	// Nothing buffered: the builder still produces an empty shuffle.
	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()
	assert.Empty(t, shuffler.Keys())
}

func TestShuffleInsertAfterFinish(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4)
	require.NoError(t, err)
	require.NoError(t, builder.Insert(0, rowBatch(t, 1)))

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	assert.ErrorIs(t, builder.Insert(0, rowBatch(t, 2)), ErrBuilderFinished)

	_, err = builder.Finish()
	assert.ErrorIs(t, err, ErrBuilderFinished)
}

func TestShuffleInvalidFlushSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := NewShufflerBuilder(context.Background(), rowSchema(), size)
		assert.ErrorIs(t, err, ErrInvalidFlushSize)
	}
}

func TestShuffleWriteFailureLatches(t *testing.T) {
	ctx := context.Background()

	faulty := blobstore.NewFaultyStore(blobstore.NewMemoryStore())
	builder, err := NewShufflerBuilder(ctx, rowSchema(), 1,
		WithStore(faulty, "shuffle.bin"),
	)
	require.NoError(t, err)

	// Header and schema are already written; fail the first group.
	faulty.FailAfterBytes(0)

	err = builder.Insert(3, rowBatch(t, 7))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuilderFailed)
	assert.ErrorIs(t, err, blobstore.ErrInjected)

	assert.ErrorIs(t, builder.Insert(3, rowBatch(t, 8)), ErrBuilderFailed)

	_, err = builder.Finish()
	assert.ErrorIs(t, err, ErrBuilderFailed)
}

func TestShuffleBuilderCloseReleasesTempDir(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4)
	require.NoError(t, err)
	require.NoError(t, builder.Insert(0, rowBatch(t, 1)))

	dir := builder.tmp.Path()
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, builder.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Close consumes the builder.
	assert.ErrorIs(t, builder.Insert(0, rowBatch(t, 2)), ErrBuilderFinished)
	_, err = builder.Finish()
	assert.ErrorIs(t, err, ErrBuilderFinished)

	require.NoError(t, builder.Close())
}

func TestShuffleBuilderCloseAfterFinish(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4)
	require.NoError(t, err)
	require.NoError(t, builder.Insert(0, rowBatch(t, 1)))

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	// The backing storage now belongs to the shuffler.
	require.NoError(t, builder.Close())

	stream, ok, err := shuffler.KeyIter(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{1}, collectRows(t, stream))
}

func TestShuffleFinishFailureReleasesBacking(t *testing.T) {
	ctx := context.Background()

	faulty := blobstore.NewFaultyStore(blobstore.NewMemoryStore())
	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4,
		WithStore(faulty, "shuffle.bin"),
	)
	require.NoError(t, err)
	require.NoError(t, builder.Insert(0, rowBatch(t, 1)))

	faulty.FailAfterBytes(0)

	_, err = builder.Finish()
	require.Error(t, err)
	assert.ErrorIs(t, err, blobstore.ErrInjected)
	assert.Nil(t, builder.blob)

	require.NoError(t, builder.Close())
}

func TestShuffleEmptyAndNilInserts(t *testing.T) {
	ctx := context.Background()

	builder, err := NewShufflerBuilder(ctx, rowSchema(), 4)
	require.NoError(t, err)
	require.NoError(t, builder.Insert(0, nil))
	require.NoError(t, builder.Insert(0, rowBatch(t)))

	shuffler, err := builder.Finish()
	require.NoError(t, err)
	defer shuffler.Close()

	assert.Empty(t, shuffler.Keys())
	assert.Equal(t, 0, shuffler.NumGroups())

	_, ok, err := shuffler.KeyIter(ctx, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
