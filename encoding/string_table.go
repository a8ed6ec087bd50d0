package encoding

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"

	"github.com/arloliu/schemabin/errs"
	"github.com/arloliu/schemabin/internal/pool"
)

// StringTableEncoder builds the side string table of a buffer.
//
// Strings are deduplicated; AddString returns the offset of the first copy.
// Offsets are relative to the start of the table.
type StringTableEncoder struct {
	buf     *pool.ByteBuffer
	offsets map[string]uint32
	scratch [binary.MaxVarintLen64]byte
}

// NewStringTableEncoder creates an empty string table backed by a pooled
// buffer. Call Finish to release the buffer.
func NewStringTableEncoder() *StringTableEncoder {
	return &StringTableEncoder{
		buf:     pool.GetBuffer(),
		offsets: make(map[string]uint32),
	}
}

// AddString appends s unless it is already present and returns its offset.
//
// It fails with ErrValue once the table would outgrow the uint32 offset
// range.
func (e *StringTableEncoder) AddString(s string) (uint32, error) {
	if off, ok := e.offsets[s]; ok {
		return off, nil
	}

	n := binary.PutUvarint(e.scratch[:], uint64(len(s)))
	start := e.buf.Len()
	if uint64(start)+uint64(n)+uint64(len(s)) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: string table exceeds %d bytes", errs.ErrValue, uint64(math.MaxUint32))
	}

	e.buf.Grow(n + len(s))
	e.buf.MustWrite(e.scratch[:n])
	e.buf.B = append(e.buf.B, s...)

	off := uint32(start) //nolint:gosec
	e.offsets[s] = off

	return off, nil
}

// Bytes returns the encoded table. The slice is owned by the encoder.
func (e *StringTableEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of distinct strings.
func (e *StringTableEncoder) Len() int {
	return len(e.offsets)
}

// Size returns the table size in bytes.
func (e *StringTableEncoder) Size() int {
	return e.buf.Len()
}

// Finish returns the buffer to the pool. The encoder must not be used
// afterwards.
func (e *StringTableEncoder) Finish() {
	if e.buf != nil {
		pool.PutBuffer(e.buf)
		e.buf = nil
	}
	e.offsets = nil
}

// StringTableDecoder resolves String slot offsets against an encoded table.
type StringTableDecoder struct {
	data []byte
}

// NewStringTableDecoder wraps an encoded table.
func NewStringTableDecoder(data []byte) StringTableDecoder {
	return StringTableDecoder{data: data}
}

// StringAt returns the string stored at offset.
//
// An offset or length running past the table is reported as
// ErrCorruptBuffer.
func (d StringTableDecoder) StringAt(offset uint32) (string, error) {
	s, _, err := readString(d.data, int(offset))
	return s, err
}

// All iterates the table entries in storage order together with their
// offsets. Iteration stops at the first malformed entry.
func (d StringTableDecoder) All() iter.Seq2[uint32, string] {
	return func(yield func(uint32, string) bool) {
		pos := 0
		for pos < len(d.data) {
			s, next, err := readString(d.data, pos)
			if err != nil {
				return
			}
			if !yield(uint32(pos), s) { //nolint:gosec
				return
			}
			pos = next
		}
	}
}

// Size returns the table size in bytes.
func (d StringTableDecoder) Size() int {
	return len(d.data)
}

// readString decodes the entry at pos and returns the position after it.
func readString(data []byte, pos int) (string, int, error) {
	if pos < 0 || pos >= len(data) {
		return "", 0, fmt.Errorf("%w: string offset %d outside table of %d bytes", errs.ErrCorruptBuffer, pos, len(data))
	}

	length, n := binary.Uvarint(data[pos:])
	if n <= 0 {
		return "", 0, fmt.Errorf("%w: bad string length at %d", errs.ErrCorruptBuffer, pos)
	}

	start := pos + n
	if length > uint64(len(data)-start) {
		return "", 0, fmt.Errorf("%w: string at %d overruns table", errs.ErrCorruptBuffer, pos)
	}
	end := start + int(length) //nolint:gosec

	return string(data[start:end]), end, nil
}
