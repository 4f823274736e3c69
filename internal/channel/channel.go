// Package channel serialises access to a compute server that must only ever
// be driven from a single thread.
//
// A Channel owns one worker goroutine, locked to an OS thread, which is the
// only code that touches the server. Callers on any goroutine build commands,
// enqueue them on a FIFO queue and, when a result is expected, wait on a
// single-use reply. The worker handles one command at a time in arrival
// order, so every server call observes one total order without any lock
// around the server itself.
//
// Methods come in two families sharing the same enqueue path: blocking ones
// that wait on the reply unconditionally, and Context ones that also return
// when the caller's context ends. A command is never cancelled once enqueued.
package channel

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/metrics"
	"go.uber.org/zap"
)

// state is shared by every clone of a channel.
type state struct {
	queue chan command

	mu     sync.RWMutex // guards refs and closed; held for reading across a send
	refs   int
	closed bool

	dead  chan struct{} // closed when the worker died
	fault *WorkerFault  // set before dead is closed
	done  chan struct{} // closed when the worker goroutine returned

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Channel is a caller handle on a compute worker. Handles are safe for
// concurrent use; Clone returns another handle on the same worker.
type Channel struct {
	state    *state
	released atomic.Bool
}

// New starts the worker for server and returns the first handle.
// The server must not be used by anything else afterwards.
func New(server compute.Server, cfg config.ChannelConfig, logger *zap.Logger, m *metrics.Metrics) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &state{
		queue:   make(chan command, cfg.QueueCapacity),
		refs:    1,
		dead:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger.Named("channel"),
		metrics: m,
	}
	go s.run(server, cfg.LockOSThread)
	return &Channel{state: s}
}

// Clone returns a new handle sharing the worker. Each handle must be closed.
func (c *Channel) Clone() *Channel {
	if c.released.Load() {
		panic(ErrChannelClosed)
	}
	s := c.state
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
	return &Channel{state: s}
}

// Close releases this handle. When the last handle is released the queue is
// closed; the worker then finishes every queued command and exits.
// Close does not wait for that, see Done and Shutdown. Closing twice is a no-op.
func (c *Channel) Close() {
	if c.released.Swap(true) {
		return
	}
	s := c.state
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		s.closed = true
		close(s.queue)
	}
}

// Done is closed once the worker has exited, after draining the queue or
// after the server panicked.
func (c *Channel) Done() <-chan struct{} {
	return c.state.done
}

// Shutdown closes this handle and waits for the worker to exit.
// It only returns nil once every other handle has been closed too.
func (c *Channel) Shutdown(ctx context.Context) error {
	c.Close()
	select {
	case <-c.state.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fault returns the reason the worker died, or nil while it is healthy.
func (c *Channel) Fault() error {
	select {
	case <-c.state.dead:
		return c.state.fault
	default:
		return nil
	}
}

// enqueue appends cmd to the queue, blocking while it is full.
func (c *Channel) enqueue(cmd command) {
	if c.released.Load() {
		panic(ErrChannelClosed)
	}
	s := c.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		panic(ErrChannelClosed)
	}

	select {
	case <-s.dead:
		panic(s.fault)
	default:
	}
	select {
	case s.queue <- cmd:
	case <-s.dead:
		panic(s.fault)
	}
	s.metrics.Enqueued(string(cmd.kind()), len(s.queue))
}

// Command constructors shared by the blocking and Context families.

func (c *Channel) submitCreate(data []byte) *reply[compute.Handle] {
	r := newReply[compute.Handle]()
	c.enqueue(&createCommand{data: bytes.Clone(data), reply: r})
	return r
}

func (c *Channel) submitCreateTensor(data []byte, shape []int, elemSize int) *reply[tensorAlloc] {
	r := newReply[tensorAlloc]()
	c.enqueue(&createTensorCommand{
		data:     bytes.Clone(data),
		shape:    slices.Clone(shape),
		elemSize: elemSize,
		reply:    r,
	})
	return r
}

func (c *Channel) submitEmpty(size uint64) *reply[compute.Handle] {
	r := newReply[compute.Handle]()
	c.enqueue(&emptyCommand{size: size, reply: r})
	return r
}

func (c *Channel) submitEmptyTensor(shape []int, elemSize int) *reply[tensorAlloc] {
	r := newReply[tensorAlloc]()
	c.enqueue(&emptyTensorCommand{shape: slices.Clone(shape), elemSize: elemSize, reply: r})
	return r
}

func (c *Channel) submitMemoryUsage() *reply[compute.MemoryUsage] {
	r := newReply[compute.MemoryUsage]()
	c.enqueue(&memoryUsageCommand{reply: r})
	return r
}

func (c *Channel) submitEndProfile() *reply[compute.ProfileDuration] {
	r := newReply[compute.ProfileDuration]()
	c.enqueue(&stopProfileCommand{reply: r})
	return r
}

// Create allocates memory holding a copy of data.
func (c *Channel) Create(data []byte) (compute.Handle, error) {
	return wait(c.state, c.submitCreate(data))
}

// CreateContext is Create that stops waiting when ctx ends.
func (c *Channel) CreateContext(ctx context.Context, data []byte) (compute.Handle, error) {
	return await(ctx, c.state, c.submitCreate(data))
}

// CreateTensor allocates a tensor holding a copy of data and returns its strides.
func (c *Channel) CreateTensor(data []byte, shape []int, elemSize int) (compute.Handle, []int, error) {
	res, err := wait(c.state, c.submitCreateTensor(data, shape, elemSize))
	return res.handle, res.strides, err
}

// CreateTensorContext is CreateTensor that stops waiting when ctx ends.
func (c *Channel) CreateTensorContext(ctx context.Context, data []byte, shape []int, elemSize int) (compute.Handle, []int, error) {
	res, err := await(ctx, c.state, c.submitCreateTensor(data, shape, elemSize))
	return res.handle, res.strides, err
}

// Empty allocates size uninitialised bytes.
func (c *Channel) Empty(size uint64) (compute.Handle, error) {
	return wait(c.state, c.submitEmpty(size))
}

// EmptyContext is Empty that stops waiting when ctx ends.
func (c *Channel) EmptyContext(ctx context.Context, size uint64) (compute.Handle, error) {
	return await(ctx, c.state, c.submitEmpty(size))
}

// EmptyTensor allocates an uninitialised tensor and returns its strides.
func (c *Channel) EmptyTensor(shape []int, elemSize int) (compute.Handle, []int, error) {
	res, err := wait(c.state, c.submitEmptyTensor(shape, elemSize))
	return res.handle, res.strides, err
}

// EmptyTensorContext is EmptyTensor that stops waiting when ctx ends.
func (c *Channel) EmptyTensorContext(ctx context.Context, shape []int, elemSize int) (compute.Handle, []int, error) {
	res, err := await(ctx, c.state, c.submitEmptyTensor(shape, elemSize))
	return res.handle, res.strides, err
}

// Read returns a copy of each bound region once every command enqueued
// before it has been dispatched.
func (c *Channel) Read(ctx context.Context, bindings []compute.Binding) ([][]byte, error) {
	r := newReply[[][]byte]()
	c.enqueue(&readCommand{bindings: slices.Clone(bindings), reply: r})
	return await(ctx, c.state, r)
}

// ReadTensor is Read for strided tensors; each result is contiguous.
func (c *Channel) ReadTensor(ctx context.Context, bindings []compute.BindingWithMeta) ([][]byte, error) {
	r := newReply[[][]byte]()
	c.enqueue(&readTensorCommand{bindings: slices.Clone(bindings), reply: r})
	return await(ctx, c.state, r)
}

// GetResource returns the server resource behind binding. It blocks and is
// meant for callers that cannot take a context.
func (c *Channel) GetResource(binding compute.Binding) (compute.Resource, error) {
	r := newReply[compute.Resource]()
	c.enqueue(&getResourceCommand{binding: binding, reply: r})
	return wait(c.state, r)
}

// Execute enqueues a kernel launch and returns as soon as it is queued, not
// when it has run.
//
// The caller must keep every bound region valid, and must not write to it
// through any other path, until the device has consumed it (for instance
// until a later Sync or Read returns). The channel orders the launch
// relative to other commands but does not protect the memory.
func (c *Channel) Execute(kernel compute.Kernel, count compute.CubeCount, bindings compute.Bindings, mode compute.ExecutionMode) {
	bindings.Buffers = slices.Clone(bindings.Buffers)
	bindings.Scalars = slices.Clone(bindings.Scalars)
	c.enqueue(&executeCommand{kernel: kernel, count: count, bindings: bindings, mode: mode})
}

// Flush asks the server to submit buffered work without waiting for it.
func (c *Channel) Flush() {
	c.enqueue(&flushCommand{})
}

// Sync returns once every command this handle enqueued before it has been
// dispatched and the server's device barrier has completed.
func (c *Channel) Sync(ctx context.Context) error {
	r := newReply[struct{}]()
	c.enqueue(&syncCommand{reply: r})
	_, err := await(ctx, c.state, r)
	return err
}

// MemoryUsage returns the server's allocator statistics.
func (c *Channel) MemoryUsage() compute.MemoryUsage {
	// The worker always fulfils this reply with a nil error. A dead worker
	// panics inside wait instead.
	usage, _ := wait(c.state, c.submitMemoryUsage())
	return usage
}

// MemoryUsageContext is MemoryUsage that stops waiting when ctx ends.
func (c *Channel) MemoryUsageContext(ctx context.Context) (compute.MemoryUsage, error) {
	return await(ctx, c.state, c.submitMemoryUsage())
}

// MemoryCleanup asks the server to reclaim unused memory.
func (c *Channel) MemoryCleanup() {
	c.enqueue(&memoryCleanupCommand{})
}

// StartProfile opens a profiling window.
func (c *Channel) StartProfile() {
	c.enqueue(&startProfileCommand{})
}

// EndProfile closes the most recent profiling window and returns its span.
func (c *Channel) EndProfile() (compute.ProfileDuration, error) {
	return wait(c.state, c.submitEndProfile())
}

// EndProfileContext is EndProfile that stops waiting when ctx ends.
func (c *Channel) EndProfileContext(ctx context.Context) (compute.ProfileDuration, error) {
	return await(ctx, c.state, c.submitEndProfile())
}

// Release frees handle's memory after every command enqueued before it.
func (c *Channel) Release(handle compute.Handle) {
	c.enqueue(&releaseCommand{handle: handle})
}
