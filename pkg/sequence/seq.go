package sequence

import (
	"context"
	"iter"
)

// FromSeq returns an iterator reading from the given iter.Seq2. The sequence
// is pulled lazily; Another pulls the same sequence again from the start, so
// the result is restartable exactly when seq is.
func FromSeq[T any](seq iter.Seq2[T, error]) Iterator[T] {
	return &seqIterator[T]{seq: seq}
}

type seqIterator[T any] struct {
	cursor[T]
	seq iter.Seq2[T, error]

	// next is the function returned by iter.Pull2 that provides the next
	// available element from the sequence.
	next func() (T, error, bool)

	// stop is the function returned by iter.Pull2 that signals that the
	// sequence will no longer be iterated.
	stop func()
}

func (s *seqIterator[T]) Next(ctx context.Context) (T, error) {
	if s.position < 0 {
		return s.exhaust()
	}
	if err := ctx.Err(); err != nil {
		s.Stop()
		return s.fail(err)
	}
	if s.next == nil {
		s.next, s.stop = iter.Pull2(s.seq)
	}
	v, err, ok := s.next()
	if !ok {
		s.Stop()
		return s.exhaust()
	}
	if err != nil {
		s.Stop()
		return s.fail(err)
	}
	return s.advance(v)
}

func (s *seqIterator[T]) Another() (Iterator[T], error) {
	return FromSeq(s.seq), nil
}

// Stop is a function that indicates that the caller will not continue to read from the sequence.
func (s *seqIterator[T]) Stop() {
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// All adapts an Iterator to an iter.Seq2 for use with range. The iterator is
// stopped when the loop ends. Exhaustion ends the loop; any other error is
// yielded once as the final pair.
func All[T any](ctx context.Context, it Iterator[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer it.Stop()
		for {
			v, err := it.Next(ctx)
			if err != nil {
				if !IsDone(err) {
					var zero T
					yield(zero, err)
				}
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
