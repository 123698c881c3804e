package sequence

import (
	"context"
)

// FromSlice returns a restartable iterator over the given values. The slice is
// shared, not copied, and must not be modified while iterators over it exist.
func FromSlice[T any](values []T) Iterator[T] {
	return &staticIterator[T]{values: values}
}

// Empty returns an iterator over the empty sequence.
func Empty[T any]() Iterator[T] {
	return &staticIterator[T]{}
}

// Single returns an iterator over a one-value sequence.
func Single[T any](v T) Iterator[T] {
	return &staticIterator[T]{values: []T{v}}
}

type staticIterator[T any] struct {
	cursor[T]
	values []T
	next   int
}

func (s *staticIterator[T]) Next(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		return s.fail(err)
	}
	if s.position < 0 || s.next >= len(s.values) {
		return s.exhaust()
	}
	v := s.values[s.next]
	s.next++
	return s.advance(v)
}

func (s *staticIterator[T]) Another() (Iterator[T], error) {
	return &staticIterator[T]{values: s.values}, nil
}

// Len returns the length of the underlying slice.
func (s *staticIterator[T]) Len() int {
	return len(s.values)
}

func (s *staticIterator[T]) Stop() {
	s.next = len(s.values)
}

// LastPositionFinder is implemented by iterators that know the length of
// their sequence without consuming it.
type LastPositionFinder interface {
	Len() int
}
