package compute

import (
	"fmt"
	"time"
)

// HandleID identifies a server-side allocation.
type HandleID uint64

// Handle is the caller-held name of a server-side allocation.
// Memory behind a handle is released only through the channel that created it,
// which orders the release after every earlier command referencing it.
type Handle struct {
	ID   HandleID
	Size uint64
}

// Binding returns a binding covering the whole allocation.
func (h Handle) Binding() Binding {
	return Binding{ID: h.ID, Offset: 0, Size: h.Size}
}

// Slice returns a binding for the byte range [start, end) of the allocation.
// Range validity is checked by the server, not here.
func (h Handle) Slice(start, end uint64) Binding {
	if end < start {
		end = start
	}
	return Binding{ID: h.ID, Offset: start, Size: end - start}
}

func (h Handle) String() string {
	return fmt.Sprintf("handle#%d(%dB)", h.ID, h.Size)
}

// Binding references a range of a handle's memory, used as a kernel argument or
// read target. It does not own the memory.
type Binding struct {
	ID     HandleID
	Offset uint64
	Size   uint64
}

// End returns the exclusive end offset of the binding.
func (b Binding) End() uint64 {
	return b.Offset + b.Size
}

// BindingWithMeta is a binding plus the tensor layout needed for shaped reads.
// Shape and Strides are in elements, ElemSize in bytes.
type BindingWithMeta struct {
	Binding  Binding
	Shape    []int
	Strides  []int
	ElemSize int
}

// NumElems returns the number of logical elements described by the shape.
func (b BindingWithMeta) NumElems() int {
	n := 1
	for _, d := range b.Shape {
		n *= d
	}
	return n
}

// CubeCount is the launch grid of a kernel dispatch.
type CubeCount struct {
	X, Y, Z uint32
}

// NewCubeCount returns a grid of x*y*z cubes.
func NewCubeCount(x, y, z uint32) CubeCount {
	return CubeCount{X: x, Y: y, Z: z}
}

// Total returns the number of cubes in the grid.
func (c CubeCount) Total() uint64 {
	return uint64(c.X) * uint64(c.Y) * uint64(c.Z)
}

// Bindings is the ordered argument list of one kernel launch.
// Scalars are raw little-endian values passed after the buffers.
type Bindings struct {
	Buffers []Binding
	Scalars [][]byte
}

// NewBindings builds launch arguments from buffer bindings.
func NewBindings(buffers ...Binding) Bindings {
	return Bindings{Buffers: buffers}
}

// WithScalars appends scalar arguments and returns the updated bindings.
func (b Bindings) WithScalars(scalars ...[]byte) Bindings {
	b.Scalars = append(b.Scalars, scalars...)
	return b
}

// ExecutionMode selects checked or unchecked kernel dispatch.
// What "checked" means is up to the server.
type ExecutionMode int

const (
	ExecutionChecked ExecutionMode = iota
	ExecutionUnchecked
)

func (m ExecutionMode) String() string {
	switch m {
	case ExecutionChecked:
		return "checked"
	case ExecutionUnchecked:
		return "unchecked"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", int(m))
	}
}

// MemoryUsage reports allocator statistics of a server.
type MemoryUsage struct {
	NumberAllocs  uint64
	BytesInUse    uint64
	BytesPadding  uint64
	BytesReserved uint64
}

func (u MemoryUsage) String() string {
	return fmt.Sprintf("allocs=%d in_use=%dB padding=%dB reserved=%dB",
		u.NumberAllocs, u.BytesInUse, u.BytesPadding, u.BytesReserved)
}

// ProfileDuration is the measured span of a profiling window.
type ProfileDuration struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the window, never negative.
func (p ProfileDuration) Duration() time.Duration {
	d := p.End.Sub(p.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Resource is the backend view of a binding's memory.
// Data aliases server memory and is only valid until the handle is released.
type Resource struct {
	Binding Binding
	Data    []byte
}

// ContiguousStrides returns row-major strides, in elements, for shape.
func ContiguousStrides(shape []int) []int {
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return strides
}
