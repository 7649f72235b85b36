package container

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the per-group block codec.
type Compression uint8

const (
	// CompressionNone stores group payloads uncompressed.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, modest ratio).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd block compression (better ratio).
	CompressionZstd Compression = 2
)

// String returns the codec name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func (c Compression) valid() bool {
	return c <= CompressionZstd
}

// Block format: [uncompressedSize u32][compressedSize u32][payload].
// compressedSize 0 means the payload is stored raw.
const blockHeaderSize = 8

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compressBlock encodes data as one block with header.
// Incompressible payloads are stored raw regardless of codec.
func compressBlock(data []byte, codec Compression) ([]byte, error) {
	var compressed []byte

	switch codec {
	case CompressionLZ4:
		var c lz4.Compressor
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := c.CompressBlock(data, dst)
		if err != nil {
			return nil, fmt.Errorf("container: lz4 compress: %w", err)
		}
		if n > 0 {
			compressed = dst[:n]
		}

	case CompressionZstd:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)

	case CompressionNone:
		// Stored raw below.
	}

	// Store raw when compression does not pay for itself.
	if compressed == nil || len(compressed) >= len(data) {
		block := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(block[0:4], uint32(len(data))) //nolint:gosec
		binary.LittleEndian.PutUint32(block[4:8], 0)
		copy(block[blockHeaderSize:], data)
		return block, nil
	}

	block := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(block[0:4], uint32(len(data)))       //nolint:gosec
	binary.LittleEndian.PutUint32(block[4:8], uint32(len(compressed))) //nolint:gosec
	copy(block[blockHeaderSize:], compressed)
	return block, nil
}

// decompressBlock decodes a block produced by compressBlock.
func decompressBlock(block []byte, codec Compression) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, ErrCorrupted
	}
	uncompressedSize := binary.LittleEndian.Uint32(block[0:4])
	compressedSize := binary.LittleEndian.Uint32(block[4:8])
	payload := block[blockHeaderSize:]

	if compressedSize == 0 {
		if uint32(len(payload)) != uncompressedSize { //nolint:gosec
			return nil, ErrCorrupted
		}
		return payload, nil
	}
	if uint32(len(payload)) != compressedSize { //nolint:gosec
		return nil, ErrCorrupted
	}

	switch codec {
	case CompressionLZ4:
		dst := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, fmt.Errorf("container: lz4 decompress: %w", err)
		}
		if uint32(n) != uncompressedSize { //nolint:gosec
			return nil, ErrCorrupted
		}
		return dst, nil

	case CompressionZstd:
		dec := getZstdDecoder()
		dst, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("container: zstd decompress: %w", err)
		}
		if uint32(len(dst)) != uncompressedSize { //nolint:gosec
			return nil, ErrCorrupted
		}
		return dst, nil

	default:
		// A compressed block under CompressionNone is a format violation.
		return nil, ErrCorrupted
	}
}
