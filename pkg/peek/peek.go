// Package peek eagerly buffers the head of a forward-only sequence while
// leaving the rest of it untouched.
//
// It separates how many items are needed right away (one page) from how many
// items are consumed in total (everything, streamed into storage):
//
//	p := peek.New(records, 100)
//	defer p.Close()
//	store(p.All())   // first 100 from the buffer, the rest straight from the source
//	respond(p.Prefix())
package peek

import (
	"iter"
	"slices"
)

// Iterator holds the buffered prefix of a source sequence and a pull handle on
// the remainder.
type Iterator[T any] struct {
	prefix []T
	next   func() (T, bool)
	stop   func()
}

// New pulls at most n items from src into the prefix buffer. The source is
// not advanced further until All is ranged over.
func New[T any](src iter.Seq[T], n int) *Iterator[T] {
	next, stop := iter.Pull(src)
	it := &Iterator[T]{next: next, stop: stop}

	for len(it.prefix) < n {
		v, ok := next()
		if !ok {
			stop()
			break
		}
		it.prefix = append(it.prefix, v)
	}
	return it
}

// Len returns the number of buffered items.
func (it *Iterator[T]) Len() int {
	return len(it.prefix)
}

// Prefix yields the buffered items. It can be ranged over any number of times.
func (it *Iterator[T]) Prefix() iter.Seq[T] {
	return slices.Values(it.prefix)
}

// All yields the buffered items followed by the rest of the source. The source
// is not rewound: the remainder can only be consumed once, later calls yield
// whatever the earlier ones left behind.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range it.prefix {
			if !yield(v) {
				return
			}
		}
		for {
			v, ok := it.next()
			if !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Close releases the source. It is safe to call more than once.
func (it *Iterator[T]) Close() {
	it.stop()
}
