// Package buffer provides the owned, growable buffers that every codec stage
// works in. A Buffer belongs to exactly one stage; data crossing a stage
// boundary is detached or copied, never shared.
package buffer

// Element is the set of element types the codec buffers hold: raw bytes and
// 32-bit words (LZ77 tokens, symbol histograms).
type Element interface {
	~byte | ~uint32
}

// minCapacity is the smallest backing array a Buffer allocates.
const minCapacity = 64

// Buffer is a contiguous, resizable sequence of T. Growth doubles the
// capacity (or more, when a single request needs it) so that appending n
// elements costs O(n) amortized.
type Buffer[T Element] struct {
	data []T
}

// Bytes and Words are the two specializations used by the codec.
type (
	Bytes = Buffer[byte]
	Words = Buffer[uint32]
)

// New returns a Buffer with room for at least capHint elements.
func New[T Element](capHint int) *Buffer[T] {
	if capHint < minCapacity {
		capHint = minCapacity
	}
	return &Buffer[T]{data: make([]T, 0, capHint)}
}

// NewBytes is New[byte].
func NewBytes(capHint int) *Bytes { return New[byte](capHint) }

// NewWords is New[uint32].
func NewWords(capHint int) *Words { return New[uint32](capHint) }

// Len returns the number of elements in the buffer.
func (b *Buffer[T]) Len() int { return len(b.data) }

// Cap returns the capacity of the backing array.
func (b *Buffer[T]) Cap() int { return cap(b.data) }

// Slice returns the live contents. The slice aliases the buffer and is
// invalidated by the next growing call or by Release.
func (b *Buffer[T]) Slice() []T { return b.data }

// Reserve guarantees capacity for n more elements without changing Len.
func (b *Buffer[T]) Reserve(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := cap(b.data) * 2
	if newCap < minCapacity {
		newCap = minCapacity
	}
	if newCap < need {
		newCap = need
	}
	tmp := make([]T, len(b.data), newCap)
	copy(tmp, b.data)
	b.data = tmp
}

// Resize sets the length to n. New elements are zero.
func (b *Buffer[T]) Resize(n int) {
	if n <= len(b.data) {
		b.data = b.data[:n]
		return
	}
	old := len(b.data)
	b.Reserve(n - old)
	b.data = b.data[:n]
	clear(b.data[old:])
}

// Append adds elements to the end.
func (b *Buffer[T]) Append(v ...T) {
	b.Reserve(len(v))
	b.data = append(b.data, v...)
}

// Push adds a single element to the end.
func (b *Buffer[T]) Push(v T) {
	if len(b.data) == cap(b.data) {
		b.Reserve(1)
	}
	b.data = append(b.data, v)
}

// Reset empties the buffer but keeps its capacity.
func (b *Buffer[T]) Reset() { b.data = b.data[:0] }

// Detach hands the contents over to the caller and leaves the buffer empty.
// The returned slice is owned by the caller.
func (b *Buffer[T]) Detach() []T {
	out := b.data
	b.data = nil
	return out
}

// Clone returns an owned copy of the contents.
func (b *Buffer[T]) Clone() []T {
	out := make([]T, len(b.data))
	copy(out, b.data)
	return out
}

// Release drops the backing array. A released buffer is empty and may be
// reused; Release on a nil buffer is a no-op so it can be deferred freely.
func (b *Buffer[T]) Release() {
	if b == nil {
		return
	}
	b.data = nil
}
