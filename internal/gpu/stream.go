package gpu

import (
	"context"
	"fmt"
	"sync"
)

type task func() error

// stream emulates an asynchronous device queue: submitted tasks run in order
// on their own goroutine while the submitting side carries on.
type stream struct {
	tasks chan task
	done  chan struct{}

	mu  sync.Mutex
	err error // first task failure since the last barrier
}

func newStream(depth int) *stream {
	s := &stream{
		tasks: make(chan task, depth),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *stream) loop() {
	defer close(s.done)
	for t := range s.tasks {
		if err := s.runTask(t); err != nil {
			s.mu.Lock()
			if s.err == nil {
				s.err = err
			}
			s.mu.Unlock()
		}
	}
}

func (s *stream) runTask(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gpu: kernel fault: %v", r)
		}
	}()
	return t()
}

func (s *stream) submit(t task) {
	s.tasks <- t
}

// barrier waits for every task submitted before it and returns the first
// failure among them.
func (s *stream) barrier(ctx context.Context) error {
	reached := make(chan struct{})
	s.submit(func() error {
		close(reached)
		return nil
	})
	select {
	case <-reached:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.err
	s.err = nil
	return err
}

func (s *stream) close() {
	close(s.tasks)
	<-s.done
}
