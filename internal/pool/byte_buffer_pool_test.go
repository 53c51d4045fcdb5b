package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	capacity := 1024
	bb := NewByteBuffer(capacity)

	require.NotNil(t, bb)
	assert.Equal(t, 0, bb.Len(), "new buffer should have zero length")
	assert.Equal(t, capacity, bb.Cap(), "new buffer should have specified capacity")
}

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(BlockBufferDefaultSize)
	bb.MustWrite([]byte("hello"))

	require.Equal(t, []byte("hello"), bb.Bytes())
	require.Equal(t, 5, bb.Len())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), BlockBufferDefaultSize)
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.ExtendOrGrow(8)
	require.Equal(t, 8, bb.Len())

	// Beyond capacity forces reallocation.
	bb.ExtendOrGrow(1024)
	require.Equal(t, 8+1024, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 8+1024)
}

func TestByteBuffer_Extend(t *testing.T) {
	bb := NewByteBuffer(16)
	require.True(t, bb.Extend(16))
	require.False(t, bb.Extend(1))
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("payload"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.EqualValues(t, 7, n)
	require.Equal(t, "payload", out.String())
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(64, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("data"))
	p.Put(bb)

	reused := p.Get()
	require.Equal(t, 0, reused.Len(), "pooled buffer must come back reset")
}

func TestByteBufferPool_DiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := p.Get()
	bb.ExtendOrGrow(1024)
	p.Put(bb) // over threshold, silently dropped

	fresh := p.Get()
	require.LessOrEqual(t, fresh.Cap(), 1024)
}

func TestDefaultPools(t *testing.T) {
	block := GetBlockBuffer()
	require.NotNil(t, block)
	block.MustWrite([]byte{1, 2, 3})
	PutBlockBuffer(block)

	file := GetFileBuffer()
	require.NotNil(t, file)
	require.GreaterOrEqual(t, file.Cap(), FileBufferDefaultSize)
	PutFileBuffer(file)
}

func TestGetInt32Slice(t *testing.T) {
	t.Run("returns slice with correct size", func(t *testing.T) {
		slice, cleanup := GetInt32Slice(100)
		defer cleanup()

		require.Len(t, slice, 100)
		require.GreaterOrEqual(t, cap(slice), 100)
	})

	t.Run("reuse after cleanup", func(t *testing.T) {
		slice1, cleanup1 := GetInt32Slice(50)
		slice1[0] = 42
		cleanup1()

		slice2, cleanup2 := GetInt32Slice(25)
		defer cleanup2()
		require.Len(t, slice2, 25)
	})
}
