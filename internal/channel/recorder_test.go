package channel

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"

	"github.com/fxnlabs/compute-channel/internal/compute"
)

// recorder is a compute.Server that logs every call in dispatch order.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	closed bool

	// hooks run inside the matching call when set
	onExecute func(compute.Kernel, compute.Bindings)
	onSync    func()
	onRead    func()
	onCall    func() // every call
}

func (r *recorder) record(call string) {
	if r.onCall != nil {
		r.onCall()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *recorder) Create(data []byte) (compute.Handle, error) {
	r.record("create:" + string(data))
	return compute.Handle{ID: compute.HandleID(len(r.Calls())), Size: uint64(len(data))}, nil
}

func (r *recorder) CreateTensor(data []byte, shape []int, elemSize int) (compute.Handle, []int, error) {
	r.record("create_tensor")
	return compute.Handle{Size: uint64(len(data))}, compute.ContiguousStrides(shape), nil
}

func (r *recorder) Empty(size uint64) (compute.Handle, error) {
	r.record("empty")
	return compute.Handle{Size: size}, nil
}

func (r *recorder) EmptyTensor(shape []int, elemSize int) (compute.Handle, []int, error) {
	r.record("empty_tensor")
	return compute.Handle{}, compute.ContiguousStrides(shape), nil
}

func (r *recorder) Read(_ context.Context, bindings []compute.Binding) ([][]byte, error) {
	r.record("read")
	if r.onRead != nil {
		r.onRead()
	}
	return make([][]byte, len(bindings)), nil
}

func (r *recorder) ReadTensor(_ context.Context, bindings []compute.BindingWithMeta) ([][]byte, error) {
	r.record("read_tensor")
	return make([][]byte, len(bindings)), nil
}

func (r *recorder) GetResource(binding compute.Binding) (compute.Resource, error) {
	r.record("get_resource")
	return compute.Resource{Binding: binding}, nil
}

func (r *recorder) Execute(kernel compute.Kernel, _ compute.CubeCount, bindings compute.Bindings, _ compute.ExecutionMode) {
	r.record("execute:" + kernel.ID())
	if r.onExecute != nil {
		r.onExecute(kernel, bindings)
	}
}

func (r *recorder) Flush() { r.record("flush") }

func (r *recorder) Sync(context.Context) error {
	r.record("sync")
	if r.onSync != nil {
		r.onSync()
	}
	return nil
}

func (r *recorder) MemoryUsage() compute.MemoryUsage {
	r.record("memory_usage")
	return compute.MemoryUsage{NumberAllocs: 3}
}

func (r *recorder) MemoryCleanup() { r.record("memory_cleanup") }

func (r *recorder) StartProfile() { r.record("start_profile") }

func (r *recorder) EndProfile() (compute.ProfileDuration, error) {
	r.record("end_profile")
	return compute.ProfileDuration{}, nil
}

func (r *recorder) Release(compute.Handle) { r.record("release") }

func (r *recorder) Close() error {
	if r.onCall != nil {
		r.onCall()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type namedKernel string

func (k namedKernel) ID() string { return string(k) }

// goroutineID parses the current goroutine's id from its stack header.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	buf = buf[:bytes.IndexByte(buf, ' ')]
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}
