package channel

import (
	"context"
	"io"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/fxnlabs/compute-channel/internal/compute"
	"go.uber.org/zap"
)

// run is the worker loop. It is the only code that calls into server.
func (s *state) run(server compute.Server, lockThread bool) {
	defer close(s.done)
	if lockThread {
		// Never unlocked: the thread exits together with the worker, taking
		// any thread-affine device context with it.
		runtime.LockOSThread()
	}

	// Server calls are not cancellable once dequeued.
	ctx := context.Background()

	s.logger.Info("Compute worker started", zap.Bool("locked_os_thread", lockThread))
	processed := 0
	for cmd := range s.queue {
		if !s.dispatch(ctx, server, cmd) {
			return
		}
		processed++
	}
	s.logger.Info("Compute worker stopped, queue drained", zap.Int("commands", processed))

	if closer, ok := server.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Failed to close compute server", zap.Error(err))
		}
	}
}

// dispatch runs one command to completion and fires its reply. It returns
// false if the server panicked, after which the worker must stop.
func (s *state) dispatch(ctx context.Context, server compute.Server, cmd command) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.fault = &WorkerFault{Command: cmd.kind(), Value: r, Stack: debug.Stack()}
			close(s.dead)
			s.logger.Error("Server panicked, compute channel is no longer usable",
				zap.String("command", string(cmd.kind())),
				zap.Any("panic", r),
				zap.ByteString("stack", s.fault.Stack))
			ok = false
		}
	}()

	switch c := cmd.(type) {
	case *readCommand:
		data, err := server.Read(ctx, c.bindings)
		c.reply.fulfil(data, err)
	case *readTensorCommand:
		data, err := server.ReadTensor(ctx, c.bindings)
		c.reply.fulfil(data, err)
	case *getResourceCommand:
		res, err := server.GetResource(c.binding)
		c.reply.fulfil(res, err)
	case *createCommand:
		handle, err := server.Create(c.data)
		c.reply.fulfil(handle, err)
	case *createTensorCommand:
		handle, strides, err := server.CreateTensor(c.data, c.shape, c.elemSize)
		c.reply.fulfil(tensorAlloc{handle: handle, strides: strides}, err)
	case *emptyCommand:
		handle, err := server.Empty(c.size)
		c.reply.fulfil(handle, err)
	case *emptyTensorCommand:
		handle, strides, err := server.EmptyTensor(c.shape, c.elemSize)
		c.reply.fulfil(tensorAlloc{handle: handle, strides: strides}, err)
	case *executeCommand:
		server.Execute(c.kernel, c.count, c.bindings, c.mode)
	case *flushCommand:
		server.Flush()
	case *syncCommand:
		err := server.Sync(ctx)
		c.reply.fulfil(struct{}{}, err)
	case *memoryUsageCommand:
		c.reply.fulfil(server.MemoryUsage(), nil)
	case *memoryCleanupCommand:
		server.MemoryCleanup()
	case *startProfileCommand:
		server.StartProfile()
	case *stopProfileCommand:
		d, err := server.EndProfile()
		c.reply.fulfil(d, err)
	case *releaseCommand:
		server.Release(c.handle)
	default:
		panic("channel: unknown command")
	}

	elapsed := time.Since(start)
	s.metrics.Dispatched(string(cmd.kind()), elapsed, len(s.queue))
	if ce := s.logger.Check(zap.DebugLevel, "Dispatched command"); ce != nil {
		ce.Write(zap.String("command", string(cmd.kind())), zap.Duration("elapsed", elapsed))
	}
	return true
}
