//go:generate mockgen -source iterator.go -destination ../../internal/mocks/mock_iterator.go -package mocks Iterator

// Package sequence provides the forward-only, position-tracked iterator used
// throughout the evaluator, together with the combinators built on it.
package sequence

import (
	"context"
	"errors"
)

// ErrIteratorDone is returned by Next when the iterator is exhausted.
// Exhaustion is not a failure.
var ErrIteratorDone = errors.New("iterator done")

// ErrNotRestartable is returned by Another when the source of an iterator
// cannot be traversed a second time.
var ErrNotRestartable = errors.New("iterator is not restartable")

// Iterator is a cursor over a possibly infinite sequence of values.
//
// Next returns the next value, or ErrIteratorDone once the sequence is
// exhausted. Any other error is a failure: the iterator must not be used
// again afterwards. Stop releases held resources; it is idempotent.
//
// Iterators are not safe for concurrent use.
type Iterator[T any] interface {
	// Next advances the iterator and returns the value now current.
	Next(ctx context.Context) (T, error)

	// Current returns the value most recently returned by Next, without
	// advancing. The boolean is false before the first call to Next and
	// after exhaustion.
	Current() (T, bool)

	// Position returns the 1-based position of the current value, 0 before
	// the first call to Next and -1 once the iterator is exhausted.
	Position() int

	// Another returns a fresh iterator, positioned at the start, over the
	// same logical sequence. A full traversal of it yields exactly the values
	// yielded by a full traversal of the receiver.
	Another() (Iterator[T], error)

	// Stop releases any resources held by the iterator.
	Stop()
}

// IsDone reports whether err signals exhaustion.
func IsDone(err error) bool {
	return errors.Is(err, ErrIteratorDone)
}

// IterIsDoneOrCancelled reports whether err signals exhaustion or a cancelled
// or expired context.
func IterIsDoneOrCancelled(err error) bool {
	return errors.Is(err, ErrIteratorDone) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// cursor tracks the current value and position shared by every iterator
// implementation in this package.
type cursor[T any] struct {
	current  T
	position int
}

func (c *cursor[T]) advance(v T) (T, error) {
	c.current = v
	c.position++
	return v, nil
}

func (c *cursor[T]) exhaust() (T, error) {
	var zero T
	c.current = zero
	c.position = -1
	return zero, ErrIteratorDone
}

func (c *cursor[T]) fail(err error) (T, error) {
	var zero T
	c.current = zero
	return zero, err
}

// Current implements Iterator.
func (c *cursor[T]) Current() (T, bool) {
	return c.current, c.position > 0
}

// Position implements Iterator.
func (c *cursor[T]) Position() int {
	return c.position
}

// Collect drains the iterator into a slice and stops it.
func Collect[T any](ctx context.Context, iter Iterator[T]) ([]T, error) {
	defer iter.Stop()

	var out []T
	for {
		v, err := iter.Next(ctx)
		if err != nil {
			if IsDone(err) {
				return out, nil
			}
			return nil, err
		}
		out = append(out, v)
	}
}

// Count drains the iterator and returns the number of values it produced.
func Count[T any](ctx context.Context, iter Iterator[T]) (int, error) {
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next(ctx)
		if err != nil {
			if IsDone(err) {
				return n, nil
			}
			return 0, err
		}
		n++
	}
}
