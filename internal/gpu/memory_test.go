package gpu

import (
	"testing"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPool_AlignUp(t *testing.T) {
	p := newMemoryPool(32, 0)

	assert.Equal(t, uint64(32), p.alignUp(0))
	assert.Equal(t, uint64(32), p.alignUp(1))
	assert.Equal(t, uint64(32), p.alignUp(32))
	assert.Equal(t, uint64(64), p.alignUp(33))

	unaligned := newMemoryPool(0, 0)
	assert.Equal(t, uint64(7), unaligned.alignUp(7))
}

func TestMemoryPool_AllocAndRelease(t *testing.T) {
	p := newMemoryPool(32, 0)

	a, err := p.alloc(10)
	require.NoError(t, err)
	b, err := p.alloc(40)
	require.NoError(t, err)
	assert.NotEqual(t, a.id, b.id)
	assert.Len(t, a.data, 32)
	assert.Len(t, b.data, 64)

	usage := p.usage()
	assert.Equal(t, uint64(2), usage.NumberAllocs)
	assert.Equal(t, uint64(50), usage.BytesInUse)
	assert.Equal(t, uint64(46), usage.BytesPadding)
	assert.Equal(t, uint64(96), usage.BytesReserved)

	assert.True(t, p.release(a.id))
	assert.False(t, p.release(a.id), "double release must be reported")

	usage = p.usage()
	assert.Equal(t, uint64(1), usage.NumberAllocs)
	assert.Equal(t, uint64(40), usage.BytesInUse)
	assert.Equal(t, uint64(24), usage.BytesPadding)
	assert.Equal(t, uint64(96), usage.BytesReserved, "released blocks stay reserved until cleanup")
}

func TestMemoryPool_ReuseClearsBlock(t *testing.T) {
	p := newMemoryPool(32, 0)

	a, err := p.alloc(16)
	require.NoError(t, err)
	copy(a.data, []byte{1, 2, 3, 4})
	require.True(t, p.release(a.id))

	b, err := p.alloc(20)
	require.NoError(t, err)
	assert.NotEqual(t, a.id, b.id, "reused blocks get a fresh handle")
	assert.Equal(t, make([]byte, 32), b.data)
	assert.Equal(t, uint64(32), p.usage().BytesReserved)
}

func TestMemoryPool_ReuseSkipsOversizedBlocks(t *testing.T) {
	p := newMemoryPool(32, 0)

	big, err := p.alloc(256)
	require.NoError(t, err)
	require.True(t, p.release(big.id))

	small, err := p.alloc(8)
	require.NoError(t, err)
	assert.Len(t, small.data, 32)
	assert.Equal(t, uint64(288), p.usage().BytesReserved)
}

func TestMemoryPool_Cleanup(t *testing.T) {
	p := newMemoryPool(32, 0)

	a, err := p.alloc(64)
	require.NoError(t, err)
	_, err = p.alloc(64)
	require.NoError(t, err)
	require.True(t, p.release(a.id))

	p.cleanup()
	usage := p.usage()
	assert.Equal(t, uint64(64), usage.BytesReserved)
	assert.Equal(t, uint64(1), usage.NumberAllocs)
}

func TestMemoryPool_Limit(t *testing.T) {
	p := newMemoryPool(32, 128)

	a, err := p.alloc(96)
	require.NoError(t, err)
	_, err = p.alloc(32)
	require.NoError(t, err)

	_, err = p.alloc(1)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	// A released block that is too large to reuse is cleaned up to make room
	require.True(t, p.release(a.id))
	_, err = p.alloc(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), p.usage().BytesReserved)
}

func TestMemoryPool_Resolve(t *testing.T) {
	p := newMemoryPool(32, 0)
	block, err := p.alloc(16)
	require.NoError(t, err)

	data, err := p.resolve(compute.Binding{ID: block.id, Offset: 4, Size: 8})
	require.NoError(t, err)
	assert.Len(t, data, 8)

	_, err = p.resolve(compute.Binding{ID: block.id, Offset: 8, Size: 16})
	assert.ErrorIs(t, err, ErrInvalidBinding, "range past the requested size")

	_, err = p.resolve(compute.Binding{ID: block.id + 1, Size: 1})
	assert.ErrorIs(t, err, ErrInvalidBinding)

	assert.Panics(t, func() {
		p.resolveUnchecked(compute.Binding{ID: block.id + 1, Size: 1})
	})
}
