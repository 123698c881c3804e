package mocks

import (
	"context"
	"errors"

	"github.com/openfga/flwor/pkg/sequence"
)

// ErrSimulated is the failure returned by iterators from NewErrorIterator
// when no other error is given.
var ErrSimulated = errors.New("simulated error")

// errorIterator yields its items up to a limit, then fails on every call.
type errorIterator[T any] struct {
	items    []T
	failAt   int
	err      error
	position int
	stopped  int
}

// NewErrorIterator returns an iterator that yields the first failAt items and
// then fails with err, or ErrSimulated if err is nil. Another restarts it
// with the same failure point.
func NewErrorIterator[T any](items []T, failAt int, err error) *errorIterator[T] {
	if err == nil {
		err = ErrSimulated
	}
	return &errorIterator[T]{items: items, failAt: failAt, err: err}
}

func (s *errorIterator[T]) Next(ctx context.Context) (T, error) {
	var val T

	if ctx.Err() != nil {
		return val, ctx.Err()
	}

	if s.position >= s.failAt {
		return val, s.err
	}

	if s.position >= len(s.items) {
		return val, sequence.ErrIteratorDone
	}

	val = s.items[s.position]
	s.position++
	return val, nil
}

func (s *errorIterator[T]) Current() (T, bool) {
	var val T
	if s.position == 0 {
		return val, false
	}
	return s.items[s.position-1], true
}

func (s *errorIterator[T]) Position() int {
	return s.position
}

func (s *errorIterator[T]) Another() (sequence.Iterator[T], error) {
	return NewErrorIterator(s.items, s.failAt, s.err), nil
}

func (s *errorIterator[T]) Stop() {
	s.stopped++
}

// Stopped returns how many times Stop was called.
func (s *errorIterator[T]) Stopped() int {
	return s.stopped
}
