package container

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/hupe1980/shufflego/record"
)

// BatchStream is a single-pass iterator over the batches of selected
// groups, in write order. It is not safe for concurrent use.
//
//	stream := reader.Stream(ctx, keep)
//	defer stream.Close()
//	for stream.Next() {
//	    batch := stream.Batch()
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
type BatchStream struct {
	ctx  context.Context
	r    *Reader
	keep func(groupID uint32) bool

	dirIdx  int
	current []*record.Batch
	curIdx  int
	groupID uint32

	batch   *record.Batch
	err     error
	closed  bool
	onClose func() error
}

// Next advances to the next batch. It returns false when the stream is
// exhausted or failed; check Err afterwards.
func (s *BatchStream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}

	for s.curIdx >= len(s.current) {
		if !s.loadNextGroup() {
			return false
		}
	}

	s.batch = s.current[s.curIdx]
	s.curIdx++
	return true
}

// Batch returns the batch produced by the last successful Next call.
func (s *BatchStream) Batch() *record.Batch {
	return s.batch
}

// GroupID returns the group id the current batch belongs to.
func (s *BatchStream) GroupID() uint32 {
	return s.groupID
}

// Err returns the first error the stream encountered, if any.
func (s *BatchStream) Err() error {
	return s.err
}

// OnClose registers fn to run once when the stream is closed. Callers
// use it to tie reader or blob lifetime to the stream.
func (s *BatchStream) OnClose(fn func() error) {
	s.onClose = fn
}

// Close releases any resources tied to the stream. It is safe to call
// Close multiple times.
func (s *BatchStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.current = nil
	s.batch = nil
	if s.onClose != nil {
		return s.onClose()
	}
	return nil
}

// loadNextGroup reads and decodes the next accepted group. It returns
// false when no group remains or on error (recorded in s.err).
func (s *BatchStream) loadNextGroup() bool {
	for s.dirIdx < len(s.r.dir) {
		entry := s.r.dir[s.dirIdx]
		s.dirIdx++

		if s.keep != nil && !s.keep(entry.ID) {
			continue
		}
		if err := s.ctx.Err(); err != nil {
			s.err = err
			return false
		}

		batches, err := s.readGroup(entry)
		if err != nil {
			s.err = err
			return false
		}
		s.current = batches
		s.curIdx = 0
		s.groupID = entry.ID
		return true
	}
	return false
}

// readGroup fetches one group block, verifies its checksum, and decodes
// every batch it contains.
func (s *BatchStream) readGroup(entry dirEntry) ([]*record.Batch, error) {
	buf := make([]byte, entry.Length)
	if _, err := s.r.blob.ReadAt(s.ctx, buf, int64(entry.Offset)); err != nil { //nolint:gosec
		return nil, fmt.Errorf("container: read group %d: %w", entry.ID, err)
	}
	if len(buf) < 8 {
		return nil, fmt.Errorf("container: group %d truncated: %w", entry.ID, ErrCorrupted)
	}

	body, crcBuf := buf[:len(buf)-4], buf[len(buf)-4:]
	if binary.LittleEndian.Uint32(crcBuf) != crc32.ChecksumIEEE(body) {
		return nil, fmt.Errorf("container: group %d: %w", entry.ID, ErrCorrupted)
	}

	count := binary.LittleEndian.Uint32(body[0:4])
	if count != entry.Batches {
		return nil, fmt.Errorf("container: group %d batch count mismatch: %w", entry.ID, ErrCorrupted)
	}
	body = body[4:]

	batches := make([]*record.Batch, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(body) < 4 {
			return nil, fmt.Errorf("container: group %d truncated: %w", entry.ID, ErrCorrupted)
		}
		blockLen := binary.LittleEndian.Uint32(body[0:4])
		body = body[4:]
		if uint64(blockLen) > uint64(len(body)) {
			return nil, fmt.Errorf("container: group %d truncated: %w", entry.ID, ErrCorrupted)
		}

		payload, err := decompressBlock(body[:blockLen], s.r.compression)
		if err != nil {
			return nil, fmt.Errorf("container: group %d: %w", entry.ID, err)
		}
		body = body[blockLen:]

		batch, err := record.ReadBatchFrom(bytes.NewReader(payload), s.r.schema)
		if err != nil {
			return nil, fmt.Errorf("container: group %d: decode batch: %w", entry.ID, err)
		}
		batches = append(batches, batch)
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("container: group %d has trailing bytes: %w", entry.ID, ErrCorrupted)
	}
	return batches, nil
}
