// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commpump

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO queue, it supports multiple producers and
// multiple consumers.
//
// There is no backpressure, a producer faster than its consumer grows the
// queue without limit.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool

	// one token per wake-up, passed on while items remain.
	readyC  chan struct{}
	closedC chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		readyC:  make(chan struct{}, 1),
		closedC: make(chan struct{}),
	}
}

func (q *Queue[T]) notify() {
	select {
	case q.readyC <- struct{}{}:
	default:
	}
}

// Push appends v, it fails only after Close.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	q.notify()
	return nil
}

// TryPop removes the oldest value without blocking.
func (q *Queue[T]) TryPop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return
	}
	v, ok = q.items[0], true
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.notify()
	}
	return
}

// Pop removes the oldest value, it waits until one is pushed, ctx is done,
// or the queue is closed and empty.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok := q.TryPop(); ok {
			return v, nil
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.readyC:
		case <-q.closedC:
			if v, ok := q.TryPop(); ok {
				return v, nil
			}
			var zero T
			return zero, ErrQueueClosed
		}
	}
}

// Drain removes and returns all values currently queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Ready returns a channel which receives when values may be available.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.readyC
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further pushes. Values already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.closedC)
}

func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
