package sequence

import (
	"context"
)

// Concat returns an iterator that first yields all values from the first
// iterator, then all values from the second, and so on. Each input is
// exhausted completely, and stopped, before moving to the next.
//
// This iterator is not thread-safe and should only be consumed by a single goroutine.
func Concat[T any](iters ...Iterator[T]) Iterator[T] {
	switch len(iters) {
	case 0:
		return Empty[T]()
	case 1:
		return iters[0]
	}
	return &concatIterator[T]{
		originals: iters,
		pending:   append([]Iterator[T](nil), iters...),
	}
}

type concatIterator[T any] struct {
	cursor[T]
	originals []Iterator[T]
	pending   []Iterator[T]
	done      bool
}

func (c *concatIterator[T]) Next(ctx context.Context) (T, error) {
	if c.done {
		return c.exhaust()
	}

	for len(c.pending) > 0 {
		current := c.pending[0]
		item, err := current.Next(ctx)
		if err == nil {
			return c.advance(item)
		}
		if !IsDone(err) {
			c.done = true
			return c.fail(err)
		}

		// current is exhausted; stop it before dropping the reference
		current.Stop()
		c.pending = c.pending[1:]
	}

	c.done = true
	return c.exhaust()
}

func (c *concatIterator[T]) Another() (Iterator[T], error) {
	fresh := make([]Iterator[T], 0, len(c.originals))
	for _, it := range c.originals {
		another, err := it.Another()
		if err != nil {
			for _, f := range fresh {
				f.Stop()
			}
			return nil, err
		}
		fresh = append(fresh, another)
	}
	return Concat(fresh...), nil
}

func (c *concatIterator[T]) Stop() {
	for _, it := range c.pending {
		it.Stop()
	}
	c.pending = nil
}
