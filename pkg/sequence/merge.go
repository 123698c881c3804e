package sequence

import (
	"context"
)

// MergedIterator merges two iterators that are each sorted by compareFn into
// one sorted iterator. Values that compare equal are yielded once.
type MergedIterator[T any] struct {
	cursor[T]
	iter1       Iterator[T]
	iter2       Iterator[T]
	current1    T
	current2    T
	hasNext1    bool
	hasNext2    bool
	compareFn   func(a, b T) int
	initialized bool
}

// Merge returns the sorted, duplicate-free union of two sorted iterators.
func Merge[T any](iter1, iter2 Iterator[T], compareFn func(a, b T) int) Iterator[T] {
	return &MergedIterator[T]{
		iter1:     iter1,
		iter2:     iter2,
		compareFn: compareFn,
	}
}

func (m *MergedIterator[T]) initialize(ctx context.Context) error {
	if m.initialized {
		return nil
	}
	m.initialized = true

	current, err := m.iter1.Next(ctx)
	if err != nil && !IsDone(err) {
		return err
	}
	m.hasNext1 = err == nil
	m.current1 = current

	current2, err2 := m.iter2.Next(ctx)
	if err2 != nil && !IsDone(err2) {
		return err2
	}
	m.hasNext2 = err2 == nil
	m.current2 = current2
	return nil
}

func (m *MergedIterator[T]) Next(ctx context.Context) (T, error) {
	if err := m.initialize(ctx); err != nil {
		return m.fail(err)
	}

	// Both iterators exhausted
	if !m.hasNext1 && !m.hasNext2 {
		return m.exhaust()
	}

	if !m.hasNext1 {
		return m.returnFrom(ctx, m.iter2, &m.current2, &m.hasNext2)
	}
	if !m.hasNext2 {
		return m.returnFrom(ctx, m.iter1, &m.current1, &m.hasNext1)
	}

	cmp := m.compareFn(m.current1, m.current2)
	switch {
	case cmp < 0:
		return m.returnFrom(ctx, m.iter1, &m.current1, &m.hasNext1)
	case cmp > 0:
		return m.returnFrom(ctx, m.iter2, &m.current2, &m.hasNext2)
	default:
		// Equal values - advance both iterators to skip duplicate
		if err := m.advanceSide(ctx, m.iter2, &m.current2, &m.hasNext2); err != nil {
			return m.fail(err)
		}
		return m.returnFrom(ctx, m.iter1, &m.current1, &m.hasNext1)
	}
}

func (m *MergedIterator[T]) returnFrom(ctx context.Context, it Iterator[T], current *T, hasNext *bool) (T, error) {
	val := *current
	if err := m.advanceSide(ctx, it, current, hasNext); err != nil {
		return m.fail(err)
	}
	return m.advance(val)
}

func (m *MergedIterator[T]) advanceSide(ctx context.Context, it Iterator[T], current *T, hasNext *bool) error {
	next, err := it.Next(ctx)
	if IsDone(err) {
		*hasNext = false
		return nil
	}
	if err != nil {
		return err
	}
	*current = next
	return nil
}

func (m *MergedIterator[T]) Another() (Iterator[T], error) {
	a1, err := m.iter1.Another()
	if err != nil {
		return nil, err
	}
	a2, err := m.iter2.Another()
	if err != nil {
		a1.Stop()
		return nil, err
	}
	return Merge(a1, a2, m.compareFn), nil
}

func (m *MergedIterator[T]) Stop() {
	m.iter1.Stop()
	m.iter2.Stop()
}
