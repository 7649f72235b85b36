package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/shufflego/blobstore"
	"github.com/hupe1980/shufflego/record"
)

// Reader provides predicate-filtered replay of a finalized container.
//
// A Reader is immutable after OpenReader and safe for concurrent use;
// every Stream call reads independently via ranged blob reads.
type Reader struct {
	blob        blobstore.Blob
	schema      *record.Schema
	compression Compression
	dir         []dirEntry
}

// OpenReader validates the container in blob and loads its directory.
// The Reader takes ownership of blob and closes it on Close.
func OpenReader(ctx context.Context, blob blobstore.Blob) (*Reader, error) {
	size := blob.Size()
	if size < headerSize+trailerSize {
		return nil, fmt.Errorf("container: open: blob too small (%d bytes): %w", size, ErrCorrupted)
	}

	hdrBuf := make([]byte, headerSize)
	if _, err := blob.ReadAt(ctx, hdrBuf, 0); err != nil {
		return nil, fmt.Errorf("container: read header: %w", err)
	}
	var hdr fileHeader
	if err := hdr.decode(hdrBuf); err != nil {
		return nil, err
	}

	compression := Compression(hdr.Flags & compressionMask) //nolint:gosec
	if !compression.valid() {
		return nil, fmt.Errorf("container: open: invalid compression codec %d", compression)
	}

	schemaBuf := make([]byte, hdr.SchemaLen)
	if _, err := blob.ReadAt(ctx, schemaBuf, headerSize); err != nil {
		return nil, fmt.Errorf("container: read schema: %w", err)
	}
	schema, err := record.ReadSchemaFrom(bytes.NewReader(schemaBuf))
	if err != nil {
		return nil, fmt.Errorf("container: decode schema: %w", err)
	}

	trailer := make([]byte, trailerSize)
	if _, err := blob.ReadAt(ctx, trailer, size-trailerSize); err != nil {
		return nil, fmt.Errorf("container: read trailer: %w", err)
	}
	if binary.LittleEndian.Uint32(trailer[4:8]) != formatMagic {
		return nil, fmt.Errorf("container: open: missing trailer magic (unfinalized container?): %w", ErrCorrupted)
	}
	footerLen := int64(binary.LittleEndian.Uint32(trailer[0:4]))
	if footerLen <= 0 || size-trailerSize-footerLen < headerSize {
		return nil, fmt.Errorf("container: open: bad footer length %d: %w", footerLen, ErrCorrupted)
	}

	footerBuf := make([]byte, footerLen)
	if _, err := blob.ReadAt(ctx, footerBuf, size-trailerSize-footerLen); err != nil {
		return nil, fmt.Errorf("container: read footer: %w", err)
	}
	dir, err := decodeFooter(footerBuf)
	if err != nil {
		return nil, err
	}

	return &Reader{
		blob:        blob,
		schema:      schema,
		compression: compression,
		dir:         dir,
	}, nil
}

// Schema returns the container schema.
func (r *Reader) Schema() *record.Schema {
	return r.schema
}

// NumGroups returns the number of groups in the container.
func (r *Reader) NumGroups() int {
	return len(r.dir)
}

// GroupRows returns the row count recorded for a group id.
func (r *Reader) GroupRows(id uint32) (uint64, bool) {
	if int(id) >= len(r.dir) {
		return 0, false
	}
	return r.dir[id].Rows, true
}

// Close releases the underlying blob. Streams created from this reader
// must not be used afterwards.
func (r *Reader) Close() error {
	return r.blob.Close()
}

// Stream lazily produces, in write order, every batch whose group id is
// accepted by keep. Rejected groups are skipped via the directory and
// never read. Each call is an independent single-pass stream.
func (r *Reader) Stream(ctx context.Context, keep func(groupID uint32) bool) *BatchStream {
	return &BatchStream{
		ctx:  ctx,
		r:    r,
		keep: keep,
	}
}
