// Package rt provides the lock-free primitives shared between the
// control side and the audio goroutine. Nothing here allocates or
// blocks after construction.
package rt

import "sync/atomic"

// Ring is a single-producer single-consumer queue over a power-of-two
// buffer. The producer owns tail, the consumer owns head; each side
// only ever stores its own index, so plain atomic loads and stores are
// sufficient with no compare-and-swap loops.
type Ring[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64
	tail atomic.Uint64
}

// NewRing returns a ring holding at least capacity elements, rounded up
// to the next power of two (minimum 2).
func NewRing[T any](capacity int) *Ring[T] {
	n := 2
	for n < capacity {
		n <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, n),
		mask: uint64(n - 1),
	}
}

// Push appends v; it reports false when the ring is full. Producer side
// only.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() > r.mask {
		return false
	}
	r.buf[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest element; the second result is false when the
// ring is empty. Consumer side only.
func (r *Ring[T]) Pop() (T, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		var zero T
		return zero, false
	}
	v := r.buf[head&r.mask]
	r.head.Store(head + 1)
	return v, true
}

// Len reports the number of queued elements. Racy by nature; use it for
// diagnostics, not control flow.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap reports the fixed element capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}
