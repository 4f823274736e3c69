package channel

import (
	"context"
	"sync/atomic"
)

type result[T any] struct {
	value T
	err   error
}

// reply is a single-use, single-value conduit from the worker back to one caller.
type reply[T any] struct {
	ch    chan result[T]
	fired atomic.Bool
}

func newReply[T any]() *reply[T] {
	return &reply[T]{ch: make(chan result[T], 1)}
}

// fulfil delivers the result. It never blocks: the conduit is buffered and
// fired at most once.
func (r *reply[T]) fulfil(value T, err error) {
	if r.fired.Swap(true) {
		panic("channel: reply fulfilled twice")
	}
	r.ch <- result[T]{value: value, err: err}
}

// wait blocks the calling goroutine until the reply arrives.
// It panics with the worker's fault if the worker died first.
func wait[T any](s *state, r *reply[T]) (T, error) {
	select {
	case res := <-r.ch:
		return res.value, res.err
	case <-s.dead:
		return lastChance(s, r)
	}
}

// await is wait for callers that may give up. When ctx ends first the
// command still runs to completion on the worker and its result is dropped.
func await[T any](ctx context.Context, s *state, r *reply[T]) (T, error) {
	select {
	case res := <-r.ch:
		return res.value, res.err
	case <-s.dead:
		return lastChance(s, r)
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// lastChance prefers a reply that was delivered before the worker died.
func lastChance[T any](s *state, r *reply[T]) (T, error) {
	select {
	case res := <-r.ch:
		return res.value, res.err
	default:
		panic(s.fault)
	}
}
