package gpu

import (
	"fmt"
	"sort"

	"github.com/fxnlabs/compute-channel/internal/compute"
)

// allocation is one block of host memory standing in for device memory.
// len(data) is the aligned size; size is what the caller asked for.
type allocation struct {
	id   compute.HandleID
	data []byte
	size uint64
}

// memoryPool hands out aligned blocks and keeps released ones for reuse
// until cleanup. It is only used from the server's worker.
type memoryPool struct {
	alignment uint64
	limit     uint64

	live   map[compute.HandleID]*allocation
	free   []*allocation // sorted by len(data)
	nextID compute.HandleID

	bytesInUse    uint64
	bytesPadding  uint64
	bytesReserved uint64 // live and free blocks
}

func newMemoryPool(alignment, limit uint64) *memoryPool {
	if alignment == 0 {
		alignment = 1
	}
	return &memoryPool{
		alignment: alignment,
		limit:     limit,
		live:      make(map[compute.HandleID]*allocation),
	}
}

func (p *memoryPool) alignUp(size uint64) uint64 {
	aligned := (size + p.alignment - 1) / p.alignment * p.alignment
	if aligned == 0 {
		aligned = p.alignment
	}
	return aligned
}

func (p *memoryPool) alloc(size uint64) (*allocation, error) {
	aligned := p.alignUp(size)

	block := p.takeFree(aligned)
	if block == nil {
		if p.limit > 0 && p.bytesReserved+aligned > p.limit {
			// Give reserved blocks back before failing
			p.cleanup()
			if p.bytesReserved+aligned > p.limit {
				return nil, fmt.Errorf("%w: need %d bytes, %d of %d reserved", ErrOutOfMemory, aligned, p.bytesReserved, p.limit)
			}
		}
		block = &allocation{data: make([]byte, aligned)}
		p.bytesReserved += aligned
	}

	p.nextID++
	block.id = p.nextID
	block.size = size
	p.live[block.id] = block
	p.bytesInUse += size
	p.bytesPadding += uint64(len(block.data)) - size
	return block, nil
}

// takeFree removes the smallest free block that fits without wasting more
// than half of it.
func (p *memoryPool) takeFree(aligned uint64) *allocation {
	i := sort.Search(len(p.free), func(i int) bool {
		return uint64(len(p.free[i].data)) >= aligned
	})
	if i == len(p.free) || uint64(len(p.free[i].data)) > 2*aligned {
		return nil
	}
	block := p.free[i]
	p.free = append(p.free[:i], p.free[i+1:]...)
	clear(block.data)
	return block
}

func (p *memoryPool) release(id compute.HandleID) bool {
	block, ok := p.live[id]
	if !ok {
		return false
	}
	delete(p.live, id)
	p.bytesInUse -= block.size
	p.bytesPadding -= uint64(len(block.data)) - block.size

	i := sort.Search(len(p.free), func(i int) bool {
		return len(p.free[i].data) >= len(block.data)
	})
	p.free = append(p.free, nil)
	copy(p.free[i+1:], p.free[i:])
	p.free[i] = block
	return true
}

// cleanup drops every free block.
func (p *memoryPool) cleanup() {
	for _, block := range p.free {
		p.bytesReserved -= uint64(len(block.data))
	}
	p.free = nil
}

// resolve returns the bytes of a binding, checking its range.
func (p *memoryPool) resolve(b compute.Binding) ([]byte, error) {
	block, ok := p.live[b.ID]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d is not allocated", ErrInvalidBinding, b.ID)
	}
	if b.End() > block.size || b.End() < b.Offset {
		return nil, fmt.Errorf("%w: range [%d,%d) outside handle %d of %d bytes", ErrInvalidBinding, b.Offset, b.End(), b.ID, block.size)
	}
	return block.data[b.Offset:b.End()], nil
}

// resolveUnchecked slices a binding without validation. A bad binding
// panics, the way a device fault would.
func (p *memoryPool) resolveUnchecked(b compute.Binding) []byte {
	return p.live[b.ID].data[b.Offset:b.End()]
}

func (p *memoryPool) usage() compute.MemoryUsage {
	return compute.MemoryUsage{
		NumberAllocs:  uint64(len(p.live)),
		BytesInUse:    p.bytesInUse,
		BytesPadding:  p.bytesPadding,
		BytesReserved: p.bytesReserved,
	}
}
