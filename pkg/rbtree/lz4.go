package rbtree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// ErrIncompleteRead is returned when a decompressed block does not fill the destination.
var ErrIncompleteRead = errors.New("incomplete read")

// CompressUInt32Slice compresses a slice of uint32-s with LZ4.
func CompressUInt32Slice(data []uint32) []byte {
	buf := new(bytes.Buffer)

	writeErr := binary.Write(buf, binary.LittleEndian, data)
	if writeErr != nil {
		return nil
	}

	compressed := make([]byte, lz4.CompressBlockBound(buf.Len()))

	written, err := lz4.CompressBlock(buf.Bytes(), compressed, nil)
	if err != nil {
		return nil
	}

	if written == 0 {
		// Incompressible input; store it as a literal-only block.
		return storeLiterals(buf.Bytes())
	}

	return compressed[:written]
}

// DecompressUInt32Slice decompresses a slice of uint32-s previously compressed with LZ4.
// `result` must be preallocated.
func DecompressUInt32Slice(data []byte, result []uint32) error {
	decompressed := make([]byte, len(result)*uint32ByteSize)

	read, err := lz4.UncompressBlock(data, decompressed)
	if err != nil {
		return fmt.Errorf("uncompress block: %w", err)
	}

	if read != len(decompressed) {
		return fmt.Errorf("%w: %d bytes instead of %d", ErrIncompleteRead, read, len(decompressed))
	}

	readErr := binary.Read(bytes.NewReader(decompressed), binary.LittleEndian, result)
	if readErr != nil {
		return fmt.Errorf("decode uint32 slice: %w", readErr)
	}

	return nil
}

// DeltaEncodeUInt32Slice replaces each element with the difference from its
// predecessor, in place. The first element is left unchanged. Sorted
// sequences become small, repetitive values that compress better with LZ4.
func DeltaEncodeUInt32Slice(data []uint32) {
	for i := len(data) - 1; i > 0; i-- {
		data[i] -= data[i-1]
	}
}

// DeltaDecodeUInt32Slice performs a prefix-sum to restore original values from
// deltas produced by DeltaEncodeUInt32Slice. The operation is performed in place.
func DeltaDecodeUInt32Slice(data []uint32) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}

// storeLiterals encodes src as a single LZ4 sequence made of literals only,
// which UncompressBlock accepts as a valid block.
func storeLiterals(src []byte) []byte {
	const (
		tokenLiteralMax = 15
		lengthByteMax   = 255
	)

	out := make([]byte, 0, len(src)+len(src)/lengthByteMax+2)

	if len(src) < tokenLiteralMax {
		out = append(out, byte(len(src)<<4))

		return append(out, src...)
	}

	out = append(out, tokenLiteralMax<<4)

	rest := len(src) - tokenLiteralMax
	for rest >= lengthByteMax {
		out = append(out, lengthByteMax)
		rest -= lengthByteMax
	}

	out = append(out, byte(rest))

	return append(out, src...)
}
