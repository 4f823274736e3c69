package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelClosed is the panic value when a handle is used after Close.
	ErrChannelClosed = errors.New("channel: use of closed compute channel")
	// ErrWorkerDead matches every *WorkerFault with errors.Is.
	ErrWorkerDead = errors.New("channel: compute worker terminated")
)

// WorkerFault describes why the worker stopped. It is the panic value raised
// in callers once the worker is gone: a dead worker leaves the server in an
// unknown state, so there is nothing a caller could retry.
type WorkerFault struct {
	Command CommandKind
	Value   any
	Stack   []byte
}

func (f *WorkerFault) Error() string {
	return fmt.Sprintf("channel: compute worker terminated while dispatching %s: %v", f.Command, f.Value)
}

func (f *WorkerFault) Is(target error) bool {
	return target == ErrWorkerDead
}

// Unwrap returns the server's panic value when it was an error.
func (f *WorkerFault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}
