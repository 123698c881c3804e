package sequence

import (
	"context"
)

// MapFunc transforms one value.
type MapFunc[T, U any] func(ctx context.Context, v T) (U, error)

// Map returns an iterator applying fn to every value of iter.
func Map[T, U any](iter Iterator[T], fn MapFunc[T, U]) Iterator[U] {
	return &mapIterator[T, U]{base: iter, fn: fn}
}

type mapIterator[T, U any] struct {
	cursor[U]
	base Iterator[T]
	fn   MapFunc[T, U]
}

func (m *mapIterator[T, U]) Next(ctx context.Context) (U, error) {
	v, err := m.base.Next(ctx)
	if err != nil {
		if IsDone(err) {
			return m.exhaust()
		}
		return m.fail(err)
	}
	u, err := m.fn(ctx, v)
	if err != nil {
		return m.fail(err)
	}
	return m.advance(u)
}

func (m *mapIterator[T, U]) Another() (Iterator[U], error) {
	base, err := m.base.Another()
	if err != nil {
		return nil, err
	}
	return Map(base, m.fn), nil
}

func (m *mapIterator[T, U]) Stop() {
	m.base.Stop()
}

// FlatMapFunc maps one value to an iterator over zero or more values.
type FlatMapFunc[T, U any] func(ctx context.Context, v T) (Iterator[U], error)

// FlatMap returns an iterator over the concatenation of fn(v) for every value
// v of iter. Each sub-iterator is stopped once exhausted.
func FlatMap[T, U any](iter Iterator[T], fn FlatMapFunc[T, U]) Iterator[U] {
	return &flatMapIterator[T, U]{base: iter, fn: fn}
}

type flatMapIterator[T, U any] struct {
	cursor[U]
	base    Iterator[T]
	fn      FlatMapFunc[T, U]
	current Iterator[U]
}

func (f *flatMapIterator[T, U]) Next(ctx context.Context) (U, error) {
	for {
		if f.current == nil {
			v, err := f.base.Next(ctx)
			if err != nil {
				if IsDone(err) {
					return f.exhaust()
				}
				return f.fail(err)
			}
			sub, err := f.fn(ctx, v)
			if err != nil {
				return f.fail(err)
			}
			f.current = sub
		}

		u, err := f.current.Next(ctx)
		if err == nil {
			return f.advance(u)
		}
		f.current.Stop()
		f.current = nil
		if !IsDone(err) {
			return f.fail(err)
		}
	}
}

func (f *flatMapIterator[T, U]) Another() (Iterator[U], error) {
	base, err := f.base.Another()
	if err != nil {
		return nil, err
	}
	return FlatMap(base, f.fn), nil
}

func (f *flatMapIterator[T, U]) Stop() {
	if f.current != nil {
		f.current.Stop()
		f.current = nil
	}
	f.base.Stop()
}
