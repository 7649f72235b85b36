// Package shufflego provides an external, key-partitioned shuffle for
// record batches.
//
// Batches are inserted under a uint32 partition key. Per-key buffers are
// spilled as atomic groups to a single append-only container file, so the
// whole shuffle never has to fit in memory. After Finish, each key's
// batches can be replayed independently: only the groups belonging to
// that key are read from the backing store.
//
// # Quick Start
//
//	schema := record.NewSchema([]record.Field{{Name: "id", Type: record.TypeUint64}})
//
//	builder, _ := shufflego.NewShufflerBuilder(ctx, schema, 4096)
//	defer builder.Close()
//	for key, batch := range partitioned {
//	    _ = builder.Insert(key, batch)
//	}
//	shuffler, _ := builder.Finish()
//	defer shuffler.Close()
//
//	stream, ok, _ := shuffler.KeyIter(ctx, 7)
//	if ok {
//	    defer stream.Close()
//	    for stream.Next() {
//	        process(stream.Batch())
//	    }
//	}
//
// By default the backing file lives in a private temp directory that is
// removed when the shuffler is closed. WithStore redirects it to any
// blobstore implementation (local directory, memory, S3, MinIO).
package shufflego
