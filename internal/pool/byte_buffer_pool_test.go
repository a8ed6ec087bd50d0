package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(1024)

	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len())
	assert.Equal(t, 1024, bb.Cap())
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(4)
	bb.MustWrite([]byte{1, 2, 3})

	off := bb.ExtendOrGrow(10)
	require.Equal(t, 3, off)
	require.Equal(t, 13, bb.Len())
	require.Equal(t, make([]byte, 10), bb.Slice(3, 13))

	// reused memory must come back zeroed
	bb.Reset()
	bb.MustWrite([]byte{9, 9, 9, 9})
	bb.Reset()
	bb.ExtendOrGrow(4)
	require.Equal(t, []byte{0, 0, 0, 0}, bb.Bytes())
}

func TestByteBuffer_Align(t *testing.T) {
	bb := NewByteBuffer(0)
	bb.Align(8)
	require.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte{1})
	bb.Align(8)
	require.Equal(t, 8, bb.Len())

	bb.Align(1)
	require.Equal(t, 8, bb.Len())
}

func TestByteBuffer_Grow(t *testing.T) {
	bb := NewByteBuffer(0)
	bb.Grow(10)
	require.GreaterOrEqual(t, bb.Cap(), BufferDefaultSize)

	big := NewByteBuffer(8 * BufferDefaultSize)
	big.ExtendOrGrow(8 * BufferDefaultSize)
	big.Grow(1)
	require.Equal(t, 8*BufferDefaultSize+2*BufferDefaultSize, big.Cap())
}

func TestByteBuffer_SlicePanics(t *testing.T) {
	bb := NewByteBuffer(8)
	bb.MustWrite([]byte{1, 2})
	require.Panics(t, func() { bb.Slice(1, 3) })
	require.Panics(t, func() { bb.Slice(2, 1) })
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(8)
	_, err := bb.Write([]byte("hello"))
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)
	require.Equal(t, "hello", out.String())
}

func TestByteBufferPool(t *testing.T) {
	p := NewByteBufferPool(16, 64)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("data"))
	p.Put(bb)

	again := p.Get()
	require.Equal(t, 0, again.Len())

	p.Put(nil)

	huge := NewByteBuffer(128)
	p.Put(huge)

	bb = GetBuffer()
	require.NotNil(t, bb)
	PutBuffer(bb)
}
