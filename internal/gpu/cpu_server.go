package gpu

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/metrics"
	"go.uber.org/zap"
)

// launch is a kernel launch buffered until the next flush.
type launch struct {
	kernel  Kernel
	buffers [][]byte
	scalars [][]byte
	count   compute.CubeCount
}

// CPUServer implements compute.Server on host memory.
//
// Kernel launches are buffered and, on flush, handed to a stream goroutine
// that plays the part of the device, so Execute, Flush and Sync behave as
// they would against real hardware. Like a device context, a CPUServer is
// not safe for concurrent use; drive it through a channel.
type CPUServer struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	memory     *memoryPool
	stream     *stream
	pending    []launch
	maxPending int
	inflight   map[compute.HandleID]struct{} // referenced by submitted, unsynced work
	deferred   error                         // kernel failure drained outside Sync

	profiles     []time.Time
	architecture int
	closed       bool
}

// NewCPUServer creates a CPU server configured by cfg.
func NewCPUServer(cfg config.ServerConfig, logger *zap.Logger, m *metrics.Metrics) *CPUServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxPending := cfg.MaxPendingTasks
	if maxPending <= 0 {
		maxPending = 1
	}
	return &CPUServer{
		logger:       logger.Named("cpu_server"),
		metrics:      m,
		memory:       newMemoryPool(cfg.Alignment, cfg.MemoryLimit),
		stream:       newStream(maxPending),
		maxPending:   maxPending,
		inflight:     make(map[compute.HandleID]struct{}),
		architecture: cfg.Architecture,
	}
}

// DeviceInfo describes the emulated device.
func (s *CPUServer) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Name:              fmt.Sprintf("CPU (%s)", runtime.GOARCH),
		Backend:           BackendCPU,
		TotalMemory:       s.memory.limit,
		ComputeCapability: s.architecture,
		DriverVersion:     runtime.Version(),
	}
}

func (s *CPUServer) Create(data []byte) (compute.Handle, error) {
	block, err := s.alloc(uint64(len(data)))
	if err != nil {
		return compute.Handle{}, err
	}
	copy(block.data, data)
	return compute.Handle{ID: block.id, Size: block.size}, nil
}

func (s *CPUServer) CreateTensor(data []byte, shape []int, elemSize int) (compute.Handle, []int, error) {
	size, err := tensorSize(shape, elemSize)
	if err != nil {
		return compute.Handle{}, nil, err
	}
	if uint64(len(data)) != size {
		return compute.Handle{}, nil, fmt.Errorf("%w: shape %v of %d-byte elements needs %d bytes, got %d", ErrInvalidShape, shape, elemSize, size, len(data))
	}
	handle, err := s.Create(data)
	if err != nil {
		return compute.Handle{}, nil, err
	}
	return handle, compute.ContiguousStrides(shape), nil
}

func (s *CPUServer) Empty(size uint64) (compute.Handle, error) {
	block, err := s.alloc(size)
	if err != nil {
		return compute.Handle{}, err
	}
	return compute.Handle{ID: block.id, Size: block.size}, nil
}

func (s *CPUServer) EmptyTensor(shape []int, elemSize int) (compute.Handle, []int, error) {
	size, err := tensorSize(shape, elemSize)
	if err != nil {
		return compute.Handle{}, nil, err
	}
	handle, err := s.Empty(size)
	if err != nil {
		return compute.Handle{}, nil, err
	}
	return handle, compute.ContiguousStrides(shape), nil
}

func (s *CPUServer) alloc(size uint64) (*allocation, error) {
	if s.closed {
		return nil, ErrServerClosed
	}
	block, err := s.memory.alloc(size)
	if err != nil {
		s.logger.Warn("Allocation failed", zap.Uint64("size", size), zap.Error(err))
		return nil, err
	}
	s.recordMemory()
	return block, nil
}

func (s *CPUServer) Read(ctx context.Context, bindings []compute.Binding) ([][]byte, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, err
	}
	out := make([][]byte, len(bindings))
	for i, b := range bindings {
		data, err := s.memory.resolve(b)
		if err != nil {
			return nil, err
		}
		out[i] = append([]byte(nil), data...)
	}
	return out, nil
}

func (s *CPUServer) ReadTensor(ctx context.Context, bindings []compute.BindingWithMeta) ([][]byte, error) {
	if err := s.Sync(ctx); err != nil {
		return nil, err
	}
	out := make([][]byte, len(bindings))
	for i, b := range bindings {
		data, err := s.memory.resolve(b.Binding)
		if err != nil {
			return nil, err
		}
		out[i], err = gatherStrided(data, b)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetResource syncs first so the returned bytes reflect all prior launches.
func (s *CPUServer) GetResource(binding compute.Binding) (compute.Resource, error) {
	if err := s.Sync(context.Background()); err != nil {
		return compute.Resource{}, err
	}
	data, err := s.memory.resolve(binding)
	if err != nil {
		return compute.Resource{}, err
	}
	return compute.Resource{Binding: binding, Data: data}, nil
}

// Execute buffers a launch. Checked launches with an unknown kernel type or
// an invalid binding are dropped and logged. Unchecked launches are not
// validated and a bad binding panics.
func (s *CPUServer) Execute(kernel compute.Kernel, count compute.CubeCount, bindings compute.Bindings, mode compute.ExecutionMode) {
	k, ok := kernel.(Kernel)
	if !ok {
		s.reject(kernel, fmt.Errorf("%w: %T", ErrUnsupportedKernel, kernel))
		return
	}

	buffers := make([][]byte, len(bindings.Buffers))
	for i, b := range bindings.Buffers {
		if mode == compute.ExecutionUnchecked {
			buffers[i] = s.memory.resolveUnchecked(b)
			continue
		}
		data, err := s.memory.resolve(b)
		if err != nil {
			s.reject(kernel, err)
			return
		}
		buffers[i] = data
	}

	for _, b := range bindings.Buffers {
		s.inflight[b.ID] = struct{}{}
	}
	s.pending = append(s.pending, launch{kernel: k, buffers: buffers, scalars: bindings.Scalars, count: count})
	s.metrics.Launched(k.ID())
	if len(s.pending) >= s.maxPending {
		s.Flush()
	}
}

func (s *CPUServer) reject(kernel compute.Kernel, err error) {
	s.metrics.Rejected()
	s.logger.Error("Rejected kernel launch", zap.String("kernel", kernel.ID()), zap.Error(err))
}

// Flush submits buffered launches to the stream.
func (s *CPUServer) Flush() {
	for _, l := range s.pending {
		s.stream.submit(func() error {
			if err := l.kernel.Run(l.buffers, l.scalars, l.count); err != nil {
				return fmt.Errorf("kernel %s: %w", l.kernel.ID(), err)
			}
			return nil
		})
	}
	s.pending = s.pending[:0]
}

// Sync flushes and waits for the stream. It returns the first kernel
// failure since the previous sync.
func (s *CPUServer) Sync(ctx context.Context) error {
	if err := s.settle(ctx); err != nil {
		return err
	}
	err := s.deferred
	s.deferred = nil
	return err
}

// settle flushes and waits for the stream, keeping any kernel failure for
// the next Sync. It only fails when ctx ends first.
func (s *CPUServer) settle(ctx context.Context) error {
	s.Flush()
	err := s.stream.barrier(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	clear(s.inflight)
	if err != nil {
		s.logger.Error("Device reported a kernel failure", zap.Error(err))
		if s.deferred == nil {
			s.deferred = err
		}
	}
	return nil
}

func (s *CPUServer) MemoryUsage() compute.MemoryUsage {
	return s.memory.usage()
}

func (s *CPUServer) MemoryCleanup() {
	s.memory.cleanup()
	s.recordMemory()
}

func (s *CPUServer) StartProfile() {
	// Work queued before the window is not part of it. A background settle
	// cannot fail.
	s.settle(context.Background())
	s.profiles = append(s.profiles, time.Now())
}

func (s *CPUServer) EndProfile() (compute.ProfileDuration, error) {
	if len(s.profiles) == 0 {
		return compute.ProfileDuration{}, ErrNoProfile
	}
	err := s.Sync(context.Background())
	start := s.profiles[len(s.profiles)-1]
	s.profiles = s.profiles[:len(s.profiles)-1]
	return compute.ProfileDuration{Start: start, End: time.Now()}, err
}

// Release returns the handle's memory to the pool. Memory still referenced
// by submitted launches is only released after the device is done with it.
func (s *CPUServer) Release(handle compute.Handle) {
	if _, busy := s.inflight[handle.ID]; busy {
		s.settle(context.Background())
	}
	if !s.memory.release(handle.ID) {
		s.logger.Warn("Release of unknown handle", zap.Uint64("handle", uint64(handle.ID)))
		return
	}
	s.recordMemory()
}

// Close waits for the stream to finish and stops it.
func (s *CPUServer) Close() error {
	if s.closed {
		return nil
	}
	s.Flush()
	s.stream.close()
	s.closed = true
	s.logger.Info("CPU server closed", zap.Stringer("memory", s.memory.usage()))
	return nil
}

func (s *CPUServer) recordMemory() {
	usage := s.memory.usage()
	s.metrics.Memory(usage.BytesInUse, usage.BytesReserved)
}

func tensorSize(shape []int, elemSize int) (uint64, error) {
	if elemSize <= 0 {
		return 0, fmt.Errorf("%w: element size %d", ErrInvalidShape, elemSize)
	}
	n := uint64(elemSize)
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in %v", ErrInvalidShape, shape)
		}
		n *= uint64(d)
	}
	return n, nil
}

// gatherStrided copies a strided tensor out of data into a contiguous buffer.
func gatherStrided(data []byte, b compute.BindingWithMeta) ([]byte, error) {
	if len(b.Shape) != len(b.Strides) || b.ElemSize <= 0 {
		return nil, fmt.Errorf("%w: shape %v, strides %v, element size %d", ErrInvalidShape, b.Shape, b.Strides, b.ElemSize)
	}
	n := b.NumElems()
	out := make([]byte, 0, n*b.ElemSize)
	if n == 0 {
		return out, nil
	}

	last := 0
	for i, d := range b.Shape {
		if b.Strides[i] < 0 {
			return nil, fmt.Errorf("%w: negative stride in %v", ErrInvalidShape, b.Strides)
		}
		last += (d - 1) * b.Strides[i]
	}
	if (last+1)*b.ElemSize > len(data) {
		return nil, fmt.Errorf("%w: tensor spans %d bytes, binding has %d", ErrInvalidBinding, (last+1)*b.ElemSize, len(data))
	}

	index := make([]int, len(b.Shape))
	for range n {
		offset := 0
		for i, idx := range index {
			offset += idx * b.Strides[i]
		}
		start := offset * b.ElemSize
		out = append(out, data[start:start+b.ElemSize]...)

		// Advance the row-major multi-index
		for i := len(index) - 1; i >= 0; i-- {
			index[i]++
			if index[i] < b.Shape[i] {
				break
			}
			index[i] = 0
		}
	}
	return out, nil
}
