package compute

import "context"

// Kernel is a compiled kernel as understood by a specific server.
type Kernel interface {
	ID() string
}

// Server is the backend execution context driven by a compute channel.
//
// Implementations are not required to be safe for concurrent use: the channel
// guarantees that exactly one goroutine, locked to one OS thread, calls into a
// server for its whole lifetime and that calls never overlap.
//
// Errors returned by a server are forwarded to callers unchanged.
type Server interface {
	// Create allocates memory initialised with data.
	Create(data []byte) (Handle, error)

	// CreateTensor allocates a tensor initialised with data and returns its strides.
	CreateTensor(data []byte, shape []int, elemSize int) (Handle, []int, error)

	// Empty allocates size uninitialised bytes.
	Empty(size uint64) (Handle, error)

	// EmptyTensor allocates an uninitialised tensor and returns its strides.
	EmptyTensor(shape []int, elemSize int) (Handle, []int, error)

	// Read copies the bound memory back to the host once all prior work on it is done.
	Read(ctx context.Context, bindings []Binding) ([][]byte, error)

	// ReadTensor is Read for strided tensors; results are contiguous.
	ReadTensor(ctx context.Context, bindings []BindingWithMeta) ([][]byte, error)

	// GetResource returns the backend resource behind a binding.
	GetResource(binding Binding) (Resource, error)

	// Execute launches kernel over count cubes.
	//
	// The caller guarantees that every bound region stays valid and is not
	// written through another path until the device has consumed it.
	Execute(kernel Kernel, count CubeCount, bindings Bindings, mode ExecutionMode)

	// Flush submits buffered work to the device without waiting for it.
	Flush()

	// Sync waits until all submitted work has completed on the device.
	Sync(ctx context.Context) error

	MemoryUsage() MemoryUsage
	MemoryCleanup()

	StartProfile()
	EndProfile() (ProfileDuration, error)

	// Release frees the memory of a handle.
	Release(handle Handle)
}
