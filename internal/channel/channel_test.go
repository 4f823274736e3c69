package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/gpu"
	"github.com/fxnlabs/compute-channel/internal/metrics"
	mockcompute "github.com/fxnlabs/compute-channel/mocks/compute"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testChannelConfig() config.ChannelConfig {
	return config.ChannelConfig{QueueCapacity: 16, LockOSThread: true}
}

func newCPUChannel(t *testing.T) *Channel {
	t.Helper()
	server := gpu.NewCPUServer(config.ServerConfig{
		Backend:         gpu.BackendCPU,
		Alignment:       32,
		MaxPendingTasks: 8,
		Architecture:    80,
	}, zap.NewNop(), nil)
	c := New(server, testChannelConfig(), zap.NewNop(), nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	})
	return c
}

func waitDone(t *testing.T, c *Channel) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}
}

// panicValue runs fn and returns what it panicked with.
func panicValue(fn func()) (value any) {
	defer func() { value = recover() }()
	fn()
	return nil
}

func TestChannel_OneWorkerTouchesTheServer(t *testing.T) {
	var (
		mu         sync.Mutex
		goroutines = map[uint64]int{}
	)
	rec := &recorder{onCall: func() {
		id := goroutineID()
		mu.Lock()
		goroutines[id]++
		mu.Unlock()
	}}
	c := New(rec, testChannelConfig(), zap.NewNop(), nil)

	const callers = 8
	var wg sync.WaitGroup
	for i := range callers {
		h := c.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer h.Close()
			handle, err := h.Create([]byte{byte(i)})
			assert.NoError(t, err)
			h.Execute(namedKernel("k"), compute.NewCubeCount(1, 1, 1), compute.NewBindings(handle.Binding()), compute.ExecutionChecked)
			h.Flush()
			_, err = h.Read(context.Background(), []compute.Binding{handle.Binding()})
			assert.NoError(t, err)
			h.MemoryUsage()
			h.StartProfile()
			_, err = h.EndProfile()
			assert.NoError(t, err)
			h.Release(handle)
			assert.NoError(t, h.Sync(context.Background()))
		}()
	}
	wg.Wait()
	c.Close()
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, goroutines, 1, "every server call runs on the worker")
	for id, n := range goroutines {
		assert.NotEqual(t, goroutineID(), id)
		assert.Equal(t, callers*9+1, n, "each call plus the final close")
	}
	assert.True(t, rec.Closed())
}

func TestChannel_CreateThenRead(t *testing.T) {
	c := newCPUChannel(t)

	h, err := c.Create([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	out, err := c.Read(context.Background(), []compute.Binding{h.Binding()})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2, 3, 4}}, out)
}

func TestChannel_MemoryUsageAndCleanup(t *testing.T) {
	c := newCPUChannel(t)

	scratch, err := c.Empty(256)
	require.NoError(t, err)
	c.Release(scratch)

	h, err := c.Empty(16)
	require.NoError(t, err)
	before := c.MemoryUsage()
	assert.GreaterOrEqual(t, before.BytesInUse, uint64(16))

	c.MemoryCleanup()
	after, err := c.MemoryUsageContext(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, after.BytesInUse, before.BytesInUse)
	assert.Less(t, after.BytesReserved, before.BytesReserved, "the released scratch block is dropped")
	assert.Equal(t, h.Size, after.BytesInUse)
}

func TestChannel_ProfileCoversLaunches(t *testing.T) {
	c := newCPUChannel(t)

	h, err := c.Empty(16)
	require.NoError(t, err)

	sleepy := gpu.KernelFunc{Name: "sleepy", Fn: func([][]byte, [][]byte, compute.CubeCount) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}}
	c.StartProfile()
	enqueueStart := time.Now()
	for range 3 {
		c.Execute(sleepy, compute.NewCubeCount(1, 1, 1), compute.NewBindings(h.Binding()), compute.ExecutionChecked)
	}
	enqueueSpan := time.Since(enqueueStart)

	d, err := c.EndProfileContext(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, d.Duration(), time.Duration(0))
	assert.GreaterOrEqual(t, d.Duration(), 15*time.Millisecond)
	assert.GreaterOrEqual(t, d.Duration()+time.Millisecond, enqueueSpan)
}

func TestChannel_ClonesShareOneWorker(t *testing.T) {
	c := newCPUChannel(t)

	var wg sync.WaitGroup
	results := make([][]byte, 2)
	inputs := [][]byte{{10, 20}, {30, 40, 50}}
	for i := range inputs {
		clone := c.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer clone.Close()
			h, err := clone.Create(inputs[i])
			if !assert.NoError(t, err) {
				return
			}
			out, err := clone.Read(context.Background(), []compute.Binding{h.Binding()})
			if assert.NoError(t, err) {
				results[i] = out[0]
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, inputs, results)
}

func TestChannel_ExecuteThenSyncIsVisible(t *testing.T) {
	c := newCPUChannel(t)

	lhs, err := c.Create(gpu.Float32sToBytes([]float32{1, 2, 3, 4}))
	require.NoError(t, err)
	rhs, err := c.Create(gpu.Float32sToBytes([]float32{4, 3, 2, 1}))
	require.NoError(t, err)
	out, err := c.Empty(16)
	require.NoError(t, err)

	c.Execute(gpu.AddKernel{}, compute.NewCubeCount(1, 1, 1),
		compute.NewBindings(lhs.Binding(), rhs.Binding(), out.Binding()), compute.ExecutionChecked)
	require.NoError(t, c.Sync(context.Background()))

	data, err := c.Read(context.Background(), []compute.Binding{out.Binding()})
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 5, 5, 5}, gpu.BytesToFloat32s(data[0]))
}

func TestChannel_TensorRoundTrip(t *testing.T) {
	c := newCPUChannel(t)

	h, strides, err := c.CreateTensor(gpu.Float32sToBytes([]float32{1, 2, 3, 4, 5, 6}), []int{2, 3}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, strides)

	out, err := c.ReadTensor(context.Background(), []compute.BindingWithMeta{{
		Binding: h.Binding(), Shape: []int{3, 2}, Strides: []int{1, 3}, ElemSize: 4,
	}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, gpu.BytesToFloat32s(out[0]))

	e, strides, err := c.EmptyTensorContext(context.Background(), []int{4, 2}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, strides)
	assert.Equal(t, uint64(32), e.Size)
}

func TestChannel_ServerErrorsAreForwarded(t *testing.T) {
	c := newCPUChannel(t)

	_, err := c.Read(context.Background(), []compute.Binding{{ID: 404, Size: 4}})
	assert.ErrorIs(t, err, gpu.ErrInvalidBinding)

	_, err = c.GetResource(compute.Binding{ID: 404, Size: 4})
	assert.ErrorIs(t, err, gpu.ErrInvalidBinding)

	_, err = c.EndProfile()
	assert.ErrorIs(t, err, gpu.ErrNoProfile)

	// The channel is still usable afterwards
	_, err = c.Create([]byte{1})
	assert.NoError(t, err)
	assert.NoError(t, c.Fault())
}

func TestChannel_ForwardsMockServerResults(t *testing.T) {
	server := mockcompute.NewMockServer(t)
	allocErr := errors.New("device lost memory")
	server.EXPECT().Create([]byte{1, 2}).Return(compute.Handle{}, allocErr).Once()
	server.EXPECT().Empty(uint64(8)).Return(compute.Handle{ID: 7, Size: 8}, nil).Once()
	server.EXPECT().MemoryUsage().Return(compute.MemoryUsage{NumberAllocs: 1, BytesInUse: 8}).Once()
	server.EXPECT().Sync(mock.Anything).Return(nil).Once()

	c := New(server, testChannelConfig(), zap.NewNop(), nil)

	_, err := c.Create([]byte{1, 2})
	assert.ErrorIs(t, err, allocErr)

	h, err := c.Empty(8)
	require.NoError(t, err)
	assert.Equal(t, compute.Handle{ID: 7, Size: 8}, h)

	assert.Equal(t, uint64(8), c.MemoryUsage().BytesInUse)
	require.NoError(t, c.Sync(context.Background()))

	c.Close()
	waitDone(t, c)
}

func TestChannel_FIFOPerCaller(t *testing.T) {
	rec := &recorder{}
	c := New(rec, testChannelConfig(), zap.NewNop(), nil)

	_, err := c.Create([]byte("a"))
	require.NoError(t, err)
	c.Execute(namedKernel("k1"), compute.NewCubeCount(1, 1, 1), compute.NewBindings(), compute.ExecutionChecked)
	c.Flush()
	c.StartProfile()
	c.Execute(namedKernel("k2"), compute.NewCubeCount(1, 1, 1), compute.NewBindings(), compute.ExecutionUnchecked)
	_, err = c.EndProfile()
	require.NoError(t, err)
	c.MemoryCleanup()
	c.Release(compute.Handle{ID: 1})
	require.NoError(t, c.Sync(context.Background()))

	assert.Equal(t, []string{
		"create:a",
		"execute:k1",
		"flush",
		"start_profile",
		"execute:k2",
		"end_profile",
		"memory_cleanup",
		"release",
		"sync",
	}, rec.Calls())

	c.Close()
	waitDone(t, c)
}

func TestChannel_ConcurrentCallersKeepTheirOwnOrder(t *testing.T) {
	rec := &recorder{}
	c := New(rec, testChannelConfig(), zap.NewNop(), nil)

	const callers, perCaller = 8, 50
	var wg sync.WaitGroup
	for i := range callers {
		clone := c.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer clone.Close()
			for j := range perCaller {
				clone.Execute(namedKernel(fmt.Sprintf("%d/%d", i, j)), compute.NewCubeCount(1, 1, 1), compute.NewBindings(), compute.ExecutionChecked)
			}
		}()
	}
	wg.Wait()
	c.Close()
	waitDone(t, c)

	next := make([]int, callers)
	calls := rec.Calls()
	require.Len(t, calls, callers*perCaller)
	for _, call := range calls {
		var i, j int
		_, err := fmt.Sscanf(call, "execute:%d/%d", &i, &j)
		require.NoError(t, err)
		assert.Equal(t, next[i], j, "caller %d out of order", i)
		next[i]++
	}
}

func TestChannel_ExecuteCopiesBindings(t *testing.T) {
	rec := &recorder{}
	seen := make(chan compute.Bindings, 1)
	rec.onExecute = func(_ compute.Kernel, b compute.Bindings) { seen <- b }

	gate := make(chan struct{})
	rec.onSync = func() { <-gate }
	c := New(rec, testChannelConfig(), zap.NewNop(), nil)

	// Hold the worker so Execute is still queued when the caller mutates
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Sync(ctx), context.Canceled)

	bindings := compute.NewBindings(compute.Binding{ID: 1, Size: 4})
	c.Execute(namedKernel("k"), compute.NewCubeCount(1, 1, 1), bindings, compute.ExecutionChecked)
	bindings.Buffers[0].ID = 99
	close(gate)

	got := <-seen
	assert.Equal(t, compute.HandleID(1), got.Buffers[0].ID)

	c.Close()
	waitDone(t, c)
}

func TestChannel_ContextEndsWaitNotCommand(t *testing.T) {
	rec := &recorder{}
	gate := make(chan struct{})
	syncs := 0
	rec.onSync = func() {
		syncs++
		if syncs == 1 {
			<-gate
		}
	}
	c := New(rec, testChannelConfig(), zap.NewNop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Sync(ctx), context.DeadlineExceeded)

	_, err := c.MemoryUsageContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate)
	require.NoError(t, c.Sync(context.Background()))
	assert.Equal(t, []string{"sync", "memory_usage", "sync"}, rec.Calls(), "abandoned commands still run")

	c.Close()
	waitDone(t, c)
}

func TestChannel_CloseDrainsQueue(t *testing.T) {
	rec := &recorder{}
	gate := make(chan struct{})
	rec.onExecute = func(compute.Kernel, compute.Bindings) { <-gate }
	c := New(rec, config.ChannelConfig{QueueCapacity: 64}, zap.NewNop(), nil)

	for i := range 20 {
		c.Execute(namedKernel(fmt.Sprint(i)), compute.NewCubeCount(1, 1, 1), compute.NewBindings(), compute.ExecutionChecked)
	}
	c.Close()

	select {
	case <-c.Done():
		t.Fatal("worker exited before draining")
	case <-time.After(10 * time.Millisecond):
	}

	close(gate)
	waitDone(t, c)
	assert.Len(t, rec.Calls(), 20)
	assert.True(t, rec.Closed(), "server is closed after the drain")
}

func TestChannel_ShutdownWaitsForEveryHandle(t *testing.T) {
	rec := &recorder{}
	c := New(rec, testChannelConfig(), zap.NewNop(), nil)
	clone := c.Clone()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Shutdown(ctx), context.DeadlineExceeded)

	// The clone still works
	_, err := clone.Create([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, clone.Shutdown(context.Background()))
	assert.True(t, rec.Closed())
}

func TestChannel_UseAfterClosePanics(t *testing.T) {
	c := New(&recorder{}, testChannelConfig(), zap.NewNop(), nil)
	clone := c.Clone()

	c.Close()
	c.Close()

	assert.PanicsWithValue(t, ErrChannelClosed, func() { c.Flush() })
	assert.PanicsWithValue(t, ErrChannelClosed, func() { c.Clone() })
	assert.NotPanics(t, func() { clone.Flush() })

	clone.Close()
	waitDone(t, c)
}

type panickingServer struct {
	recorder
}

func (p *panickingServer) Read(context.Context, []compute.Binding) ([][]byte, error) {
	panic(errors.New("device context lost"))
}

func TestChannel_ServerPanicKillsWorker(t *testing.T) {
	server := &panickingServer{}
	c := New(server, testChannelConfig(), zap.NewNop(), nil)
	clone := c.Clone()
	defer clone.Close()
	defer c.Close()

	v := panicValue(func() {
		_, _ = c.Read(context.Background(), []compute.Binding{{ID: 1}})
	})
	fault, ok := v.(*WorkerFault)
	require.True(t, ok, "expected *WorkerFault, got %T", v)
	assert.Equal(t, KindRead, fault.Command)
	assert.ErrorIs(t, fault, ErrWorkerDead)
	assert.EqualError(t, errors.Unwrap(fault), "device context lost")
	assert.NotEmpty(t, fault.Stack)

	waitDone(t, c)
	assert.Equal(t, fault, c.Fault())
	assert.False(t, server.Closed(), "a faulted server is not closed")

	// Every handle now fails loudly
	v = panicValue(func() { clone.Flush() })
	assert.Equal(t, fault, v)
	v = panicValue(func() { _ = clone.Sync(context.Background()) })
	assert.Equal(t, fault, v)
}

func TestChannel_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")
	c := New(&recorder{}, testChannelConfig(), zap.NewNop(), m)

	_, err := c.Create([]byte("a"))
	require.NoError(t, err)
	c.Flush()
	require.NoError(t, c.Sync(context.Background()))
	c.Close()
	waitDone(t, c)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandsEnqueued.WithLabelValues(string(KindCreate))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandsDispatched.WithLabelValues(string(KindFlush))))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CommandsDispatched.WithLabelValues(string(KindSync))))
}

func BenchmarkChannel_RoundTrip(b *testing.B) {
	c := New(&recorder{}, testChannelConfig(), zap.NewNop(), nil)
	defer c.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := c.Sync(ctx); err != nil {
			b.Fatal(err)
		}
	}
}
