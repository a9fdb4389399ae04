// SPDX-License-Identifier: MIT

// Package pool runs independent tasks and hands back their results.
//
// Two executors share one interface:
//   - Immediate runs each task inside Submit, on the caller's goroutine.
//   - Pool runs tasks on at most n goroutines (errgroup with SetLimit).
//
// A failing task does not cancel its siblings; its error is delivered
// through its own Handle. Panics in tasks are not recovered.
package pool

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is reported by handles of tasks submitted after Close.
var ErrClosed = errors.New("pool: executor closed")

// Task is one unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// Handle is the pending result of a submitted task.
type Handle[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newHandle[T any]() *Handle[T] { return &Handle[T]{done: make(chan struct{})} }

func (h *Handle[T]) resolve(v T, err error) {
	h.val, h.err = v, err
	close(h.done)
}

// Await blocks until the task finishes or ctx is done.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		return h.val, h.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

// Executor runs tasks. Close waits for every submitted task.
type Executor[T any] interface {
	Submit(task Task[T]) *Handle[T]
	Close() error
}

// Immediate is the synchronous Executor.
type Immediate[T any] struct {
	ctx    context.Context
	mu     sync.Mutex
	closed bool
}

// NewImmediate returns an Executor that runs tasks inside Submit with a
// background context.
func NewImmediate[T any]() *Immediate[T] {
	return &Immediate[T]{ctx: context.Background()}
}

// Submit runs task to completion before returning.
func (e *Immediate[T]) Submit(task Task[T]) *Handle[T] {
	h := newHandle[T]()
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		var zero T
		h.resolve(zero, ErrClosed)

		return h
	}
	h.resolve(task(e.ctx))

	return h
}

// Close marks the executor closed. It never fails.
func (e *Immediate[T]) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	return nil
}

// Pool is the concurrent Executor.
type Pool[T any] struct {
	ctx    context.Context
	g      errgroup.Group
	mu     sync.Mutex
	closed bool
}

// NewPool returns a Pool running at most workers tasks at once; workers < 1
// means one. Tasks receive ctx.
func NewPool[T any](ctx context.Context, workers int) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	p := &Pool[T]{ctx: ctx}
	p.g.SetLimit(workers)

	return p
}

// Submit schedules task; it blocks while all workers are busy.
//
// The lock is held across g.Go so Close cannot start waiting between the
// closed check and the task being counted by the group.
func (p *Pool[T]) Submit(task Task[T]) *Handle[T] {
	h := newHandle[T]()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		var zero T
		h.resolve(zero, ErrClosed)

		return h
	}
	p.g.Go(func() error {
		v, err := task(p.ctx)
		h.resolve(v, err)

		return err
	})

	return h
}

// Close waits for every submitted task and returns the first task error.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	return p.g.Wait()
}
