package sequence

import (
	"context"
)

type errorIterator[T any] struct {
	err error
}

// Error returns an iterator whose every call to Next fails with err. It is
// used where a constructor cannot report an error directly.
func Error[T any](err error) Iterator[T] {
	return &errorIterator[T]{err: err}
}

func (e *errorIterator[T]) Next(ctx context.Context) (T, error) {
	var t T
	return t, e.err
}

func (e *errorIterator[T]) Current() (T, bool) {
	var t T
	return t, false
}

func (e *errorIterator[T]) Position() int {
	return 0
}

func (e *errorIterator[T]) Another() (Iterator[T], error) {
	return e, nil
}

func (e *errorIterator[T]) Stop() {}
