// Package ringbuf provides a fixed-capacity FIFO that overwrites its oldest
// element once full. It backs every bounded history in the monitor.
package ringbuf

// Buffer is a bounded FIFO with strict oldest-first eviction.
// The zero value is not usable; construct with New.
type Buffer[T any] struct {
	items []T
	start int
	size  int
}

// New creates a buffer holding at most capacity items.
// A capacity below one is raised to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when the buffer is full.
// It reports whether an element was evicted.
func (b *Buffer[T]) Push(v T) bool {
	if b.size < len(b.items) {
		b.items[(b.start+b.size)%len(b.items)] = v
		b.size++
		return false
	}
	b.items[b.start] = v
	b.start = (b.start + 1) % len(b.items)
	return true
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int { return b.size }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// At returns the i-th element counting from the oldest (0) to the newest (Len-1).
// It panics when i is out of range, like slice indexing.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic("ringbuf: index out of range")
	}
	return b.items[(b.start+i)%len(b.items)]
}

// Last returns the newest element and false when the buffer is empty.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.At(b.size - 1), true
}

// Slice returns a copy of the contents ordered oldest to newest.
func (b *Buffer[T]) Slice() []T {
	out := make([]T, b.size)
	for i := range out {
		out[i] = b.At(i)
	}
	return out
}

// Tail returns a copy of the newest n elements, oldest first.
// n larger than Len returns everything.
func (b *Buffer[T]) Tail(n int) []T {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	offset := b.size - n
	for i := range out {
		out[i] = b.At(offset + i)
	}
	return out
}

// Clear drops every element while keeping the capacity.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.start = 0
	b.size = 0
}
