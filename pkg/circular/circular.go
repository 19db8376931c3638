package circular

import (
	"fmt"
	"sync"
)

/*
 * Data structure implementing a fixed-capacity circular buffer.
 *
 * The same structure backs the rolling audio frame written by the capture
 * callback and the small capped histories kept by the tuner and the tap
 * tempo estimator.
 */
type Buffer[T any] struct {
	mutex   sync.RWMutex
	values  []T
	pointer int
	count   int
}

/*
 * Add elements to the circular buffer, potentially overwriting unread elements.
 *
 * Semantics: First write to buffer, then increment pointer.
 *
 * Pointer points to the next element to be overwritten, which is also the
 * oldest element once the buffer is full.
 */
func (b *Buffer[T]) Enqueue(elems ...T) {
	numElems := len(elems)
	values := b.values
	n := len(values)

	if n == 0 || numElems == 0 {
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	/*
	 * If there are more elements than fit into the buffer, simply copy
	 * the tail of the element array into the buffer, otherwise perform
	 * circular write operation.
	 */
	if numElems >= n {
		idx := numElems - n
		copy(values, elems[idx:numElems])
		b.pointer = 0
		b.count = n
		return
	}

	ptr := b.pointer
	ptrInc := ptr + numElems

	/*
	 * Check whether the write operation stays within the array bounds.
	 */
	if ptrInc < n {
		copy(values[ptr:ptrInc], elems)
		b.pointer = ptrInc
	} else {
		head := ptrInc - n
		tail := n - ptr
		copy(values[ptr:n], elems[0:tail])
		copy(values[0:head], elems[tail:numElems])
		b.pointer = head
	}

	b.count += numElems

	if b.count > n {
		b.count = n
	}

}

/*
 * Returns the capacity of the buffer.
 */
func (b *Buffer[T]) Length() int {
	return len(b.values)
}

/*
 * Returns the number of elements written and not yet overwritten.
 */
func (b *Buffer[T]) Count() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.count
}

/*
 * Reports whether every slot of the buffer holds a written element.
 */
func (b *Buffer[T]) Full() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.count == len(b.values)
}

/*
 * Retrieve all elements from the circular buffer, oldest first.
 */
func (b *Buffer[T]) Retrieve(buf []T) error {
	values := b.values
	n := len(values)
	m := len(buf)

	/*
	 * Ensure the target buffer is of equal size.
	 */
	if n != m {
		return fmt.Errorf("target buffer holds %d elements, source buffer holds %d", m, n)
	}

	b.mutex.RLock()
	ptr := b.pointer
	tailSize := n - ptr
	copy(buf[0:tailSize], values[ptr:n])
	copy(buf[tailSize:n], values[0:ptr])
	b.mutex.RUnlock()
	return nil
}

/*
 * Append the stored elements to dst, oldest first, and return the result.
 *
 * Unlike Retrieve this works on a partially filled buffer.
 */
func (b *Buffer[T]) Values(dst []T) []T {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	n := len(b.values)

	if n == 0 {
		return dst
	}

	start := (b.pointer - b.count + n) % n

	for i := 0; i < b.count; i++ {
		dst = append(dst, b.values[(start+i)%n])
	}

	return dst
}

/*
 * Returns the most recently written element.
 */
func (b *Buffer[T]) Newest() (T, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	var zero T

	if b.count == 0 {
		return zero, false
	}

	n := len(b.values)
	return b.values[(b.pointer-1+n)%n], true
}

/*
 * Returns the oldest element still held by the buffer.
 */
func (b *Buffer[T]) Oldest() (T, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	var zero T

	if b.count == 0 {
		return zero, false
	}

	n := len(b.values)
	return b.values[(b.pointer-b.count+n)%n], true
}

/*
 * Forget all elements. Capacity is kept.
 */
func (b *Buffer[T]) Reset() {
	b.mutex.Lock()
	b.pointer = 0
	b.count = 0
	b.mutex.Unlock()
}

/*
 * Creates a circular buffer of a certain size.
 */
func CreateBuffer[T any](size int) *Buffer[T] {

	if size < 0 {
		size = 0
	}

	return &Buffer[T]{
		values: make([]T, size),
	}
}
