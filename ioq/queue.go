// Package ioq implements the bounded exchange queue behind IOC channels.
//
// A Queue moves one fixed-size value at a time from exactly one writer to
// exactly one reader. The two sides may run on different cores, or preempt
// each other, without any lock between them.
package ioq

import (
	"errors"
	"sync/atomic"
)

// ErrBufferOverflow is returned by Enqueue when no free slot is left.
var ErrBufferOverflow = errors.New("ioq: buffer overflow")

// Queue is a ring of slots with two indices. The writer owns wr and the
// reader owns rd; each side only ever loads the index of the other one.
//
// One slot is always kept free to tell full from empty, so a queue built
// with capacity n holds at most n-1 values.
type Queue[T any] struct {
	slots []T
	wr    atomic.Uint32
	rd    atomic.Uint32
}

// New returns an empty queue with capacity slots. The capacity does not
// have to be a power of two.
func New[T any](capacity int) *Queue[T] {
	if capacity < 2 {
		panic("ioq: capacity must be at least 2")
	}
	return &Queue[T]{slots: make([]T, capacity)}
}

// Cap returns the number of slots, one more than the number of usable ones.
func (q *Queue[T]) Cap() int {
	return len(q.slots)
}

func (q *Queue[T]) next(i uint32) uint32 {
	return (i + 1) % uint32(len(q.slots))
}

// InitWriter zeroes the write index. Must not race with Enqueue.
func (q *Queue[T]) InitWriter() {
	q.wr.Store(0)
}

// InitReader zeroes the read index. Must not race with Dequeue.
func (q *Queue[T]) InitReader() {
	q.rd.Store(0)
}

// Enqueue copies v into the next free slot. It fails with ErrBufferOverflow
// and leaves the queue untouched when the queue is full.
func (q *Queue[T]) Enqueue(v T) error {
	w := q.wr.Load()
	n := q.next(w)
	if n == q.rd.Load() {
		return ErrBufferOverflow
	}
	q.slots[w] = v
	// the store of the new index publishes the slot to the reader
	q.wr.Store(n)
	return nil
}

// Dequeue removes the oldest value. The caller must have checked IsEmpty
// first; dequeuing from an empty queue panics.
func (q *Queue[T]) Dequeue() T {
	r := q.rd.Load()
	if r == q.wr.Load() {
		panic("ioq: dequeue from empty queue")
	}
	v := q.slots[r]
	var zero T
	q.slots[r] = zero
	q.rd.Store(q.next(r))
	return v
}

// IsFull reports whether the next Enqueue would overflow. A writer may see a
// stale read index here; that only makes it report full too early.
func (q *Queue[T]) IsFull() bool {
	return q.next(q.wr.Load()) == q.rd.Load()
}

// IsEmpty reports whether there is nothing to dequeue.
func (q *Queue[T]) IsEmpty() bool {
	return q.wr.Load() == q.rd.Load()
}

// Len returns the number of queued values as seen by the caller.
func (q *Queue[T]) Len() int {
	n := uint32(len(q.slots))
	return int((q.wr.Load() + n - q.rd.Load()) % n)
}

// Reset drops everything queued by moving the read index onto the write
// index. Neither side may be active while the queue is reset.
func (q *Queue[T]) Reset() {
	q.rd.Store(q.wr.Load())
}
