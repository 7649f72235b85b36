package container

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	// formatMagic identifies shuffle group containers (ASCII "SHG1").
	formatMagic uint32 = 0x53484731

	// formatVersion is the current container format version.
	formatVersion uint32 = 1

	// headerSize is the fixed header prefix; the encoded schema follows it.
	headerSize = 20

	// dirEntrySize is the size of one footer directory entry.
	dirEntrySize = 32

	// trailerSize is the fixed trailer at the very end of the container.
	trailerSize = 8

	// compressionMask selects the compression codec bits in the flags word.
	compressionMask uint32 = 0xFF
)

var (
	// ErrInvalidMagic is returned when a blob is not a shuffle container.
	ErrInvalidMagic = errors.New("container: invalid magic number")

	// ErrInvalidVersion is returned for unsupported format versions.
	ErrInvalidVersion = errors.New("container: unsupported format version")

	// ErrCorrupted is returned when a checksum does not match.
	ErrCorrupted = errors.New("container: corrupted (checksum mismatch)")

	// ErrWriterFinished is returned when writing to a finished writer.
	ErrWriterFinished = errors.New("container: writer already finished")
)

// fileHeader is the fixed 20-byte prefix of a container.
// All multi-byte fields are little-endian.
type fileHeader struct {
	Magic     uint32
	Version   uint32
	Flags     uint32 // low byte: compression codec
	SchemaLen uint32
	Checksum  uint32 // crc32 of the first 16 bytes
}

func (h *fileHeader) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], h.SchemaLen)
	h.Checksum = crc32.ChecksumIEEE(buf[:16])
	binary.LittleEndian.PutUint32(buf[16:20], h.Checksum)
	return buf
}

func (h *fileHeader) decode(buf []byte) error {
	h.Magic = binary.LittleEndian.Uint32(buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.SchemaLen = binary.LittleEndian.Uint32(buf[12:16])
	h.Checksum = binary.LittleEndian.Uint32(buf[16:20])

	if h.Checksum != crc32.ChecksumIEEE(buf[:16]) {
		return ErrCorrupted
	}
	if h.Magic != formatMagic {
		return ErrInvalidMagic
	}
	if h.Version > formatVersion {
		return ErrInvalidVersion
	}
	return nil
}

// dirEntry describes one group in the footer directory.
type dirEntry struct {
	ID      uint32
	Offset  uint64 // byte offset of the group block
	Length  uint64 // byte length of the group block, checksum included
	Batches uint32
	Rows    uint64
}

func (e *dirEntry) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], e.ID)
	binary.LittleEndian.PutUint64(buf[4:12], e.Offset)
	binary.LittleEndian.PutUint64(buf[12:20], e.Length)
	binary.LittleEndian.PutUint32(buf[20:24], e.Batches)
	binary.LittleEndian.PutUint64(buf[24:32], e.Rows)
}

func (e *dirEntry) decode(buf []byte) {
	e.ID = binary.LittleEndian.Uint32(buf[0:4])
	e.Offset = binary.LittleEndian.Uint64(buf[4:12])
	e.Length = binary.LittleEndian.Uint64(buf[12:20])
	e.Batches = binary.LittleEndian.Uint32(buf[20:24])
	e.Rows = binary.LittleEndian.Uint64(buf[24:32])
}

// encodeFooter renders the directory: count, entries, crc32.
func encodeFooter(dir []dirEntry) []byte {
	buf := make([]byte, 4+len(dir)*dirEntrySize+4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(dir))) //nolint:gosec
	for i := range dir {
		dir[i].encode(buf[4+i*dirEntrySize:])
	}
	sum := crc32.ChecksumIEEE(buf[: len(buf)-4])
	binary.LittleEndian.PutUint32(buf[len(buf)-4:], sum)
	return buf
}

// decodeFooter parses a footer rendered by encodeFooter.
func decodeFooter(buf []byte) ([]dirEntry, error) {
	if len(buf) < 8 {
		return nil, ErrCorrupted
	}
	sum := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if sum != crc32.ChecksumIEEE(buf[:len(buf)-4]) {
		return nil, ErrCorrupted
	}

	count := binary.LittleEndian.Uint32(buf[0:4])
	if len(buf) != 4+int(count)*dirEntrySize+4 {
		return nil, ErrCorrupted
	}

	dir := make([]dirEntry, count)
	for i := range dir {
		dir[i].decode(buf[4+i*dirEntrySize:])
	}
	return dir, nil
}
