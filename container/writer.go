package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/hupe1980/shufflego/record"
)

// Writer appends record-batch groups to a container.
//
// A Writer is NOT safe for concurrent use; group ids encode write order,
// so callers must serialize WriteGroup externally (the shuffle builder
// holds a single writer lock).
type Writer struct {
	w           io.Writer
	schema      *record.Schema
	compression Compression
	offset      uint64
	nextID      uint32
	dir         []dirEntry
	finished    bool
	err         error // sticky after a failed write
}

// WriterOptions contains configuration for a container Writer.
type WriterOptions struct {
	// Compression selects the per-group codec. Default: CompressionNone.
	Compression Compression
}

// NewWriter creates a writer over w and writes the container header
// eagerly so that a failing destination surfaces immediately.
func NewWriter(w io.Writer, schema *record.Schema, optFns ...func(o *WriterOptions)) (*Writer, error) {
	opts := WriterOptions{Compression: CompressionNone}
	for _, fn := range optFns {
		fn(&opts)
	}
	if !opts.Compression.valid() {
		return nil, fmt.Errorf("container: invalid compression codec %d", opts.Compression)
	}

	var schemaBuf bytes.Buffer
	if _, err := schema.WriteTo(&schemaBuf); err != nil {
		return nil, fmt.Errorf("container: encode schema: %w", err)
	}

	hdr := fileHeader{
		Magic:     formatMagic,
		Version:   formatVersion,
		Flags:     uint32(opts.Compression),
		SchemaLen: uint32(schemaBuf.Len()), //nolint:gosec
	}

	cw := &Writer{
		w:           w,
		schema:      schema,
		compression: opts.Compression,
	}

	if err := cw.writeAll(hdr.encode()); err != nil {
		return nil, fmt.Errorf("container: write header: %w", err)
	}
	if err := cw.writeAll(schemaBuf.Bytes()); err != nil {
		return nil, fmt.Errorf("container: write schema: %w", err)
	}
	return cw, nil
}

// Schema returns the schema the writer was created with.
func (cw *Writer) Schema() *record.Schema {
	return cw.schema
}

// NextGroupID returns the id the next WriteGroup call will assign.
func (cw *Writer) NextGroupID() uint32 {
	return cw.nextID
}

// WriteGroup appends the batches as one group and returns its id.
// The batches are written in slice order; a group is never empty.
func (cw *Writer) WriteGroup(batches []*record.Batch) (uint32, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	if cw.finished {
		return 0, ErrWriterFinished
	}
	if len(batches) == 0 {
		return 0, fmt.Errorf("container: write group: no batches")
	}

	var buf bytes.Buffer
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(batches))) //nolint:gosec
	buf.Write(countBuf[:])

	var rows uint64
	for _, batch := range batches {
		var payload bytes.Buffer
		if err := batch.WriteTo(&payload); err != nil {
			return 0, fmt.Errorf("container: encode batch: %w", err)
		}
		block, err := compressBlock(payload.Bytes(), cw.compression)
		if err != nil {
			return 0, err
		}

		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(block))) //nolint:gosec
		buf.Write(lenBuf[:])
		buf.Write(block)
		rows += uint64(batch.NumRows()) //nolint:gosec
	}

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(crcBuf[:])

	entry := dirEntry{
		ID:      cw.nextID,
		Offset:  cw.offset,
		Length:  uint64(buf.Len()), //nolint:gosec
		Batches: uint32(len(batches)), //nolint:gosec
		Rows:    rows,
	}

	if err := cw.writeAll(buf.Bytes()); err != nil {
		// Offset is now indeterminate; latch the writer broken.
		cw.err = fmt.Errorf("container: write group %d: %w", entry.ID, err)
		return 0, cw.err
	}

	cw.dir = append(cw.dir, entry)
	cw.nextID++
	return entry.ID, nil
}

// Finish writes the footer directory and trailer. The writer is not
// usable afterwards; the destination is finalized by the caller.
func (cw *Writer) Finish() error {
	if cw.err != nil {
		return cw.err
	}
	if cw.finished {
		return ErrWriterFinished
	}
	cw.finished = true

	footer := encodeFooter(cw.dir)
	if err := cw.writeAll(footer); err != nil {
		cw.err = fmt.Errorf("container: write footer: %w", err)
		return cw.err
	}

	trailer := make([]byte, trailerSize)
	binary.LittleEndian.PutUint32(trailer[0:4], uint32(len(footer))) //nolint:gosec
	binary.LittleEndian.PutUint32(trailer[4:8], formatMagic)
	if err := cw.writeAll(trailer); err != nil {
		cw.err = fmt.Errorf("container: write trailer: %w", err)
		return cw.err
	}
	return nil
}

func (cw *Writer) writeAll(p []byte) error {
	n, err := cw.w.Write(p)
	cw.offset += uint64(n) //nolint:gosec
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return err
}
