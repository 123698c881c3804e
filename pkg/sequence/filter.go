package sequence

import (
	"context"
	"sync"
)

// FilterFunc is a function that determines whether an item should be included in the iterator results.
// It returns true if the item passes the filter, false otherwise.
// If an error occurs during filtering, it should be returned.
type FilterFunc[T any] func(ctx context.Context, v T) (bool, error)

type filter[T any] struct {
	cursor[T]
	iter    Iterator[T]
	filters []FilterFunc[T]
	once    *sync.Once
}

// Filter returns an iterator over the values of iter that pass every filter.
// The first filter error aborts the iteration and is returned from Next.
func Filter[T any](iter Iterator[T], filters ...FilterFunc[T]) Iterator[T] {
	if len(filters) == 0 {
		return iter
	}
	return &filter[T]{
		iter:    iter,
		filters: filters,
		once:    &sync.Once{},
	}
}

func (f *filter[T]) Stop() {
	f.once.Do(func() {
		f.iter.Stop()
	})
}

func (f *filter[T]) applyFilters(ctx context.Context, entry T) (bool, error) {
	for _, filter := range f.filters {
		passes, err := filter(ctx, entry)
		if err != nil {
			return false, err
		}
		if !passes {
			return false, nil
		}
	}
	return true, nil
}

// Next returns the next value that passes all filter functions.
func (f *filter[T]) Next(ctx context.Context) (T, error) {
	for {
		entry, err := f.iter.Next(ctx)
		if err != nil {
			if IsDone(err) {
				return f.exhaust()
			}
			return f.fail(err)
		}

		valid, err := f.applyFilters(ctx, entry)
		if err != nil {
			return f.fail(err)
		}
		if !valid {
			continue
		}
		return f.advance(entry)
	}
}

func (f *filter[T]) Another() (Iterator[T], error) {
	base, err := f.iter.Another()
	if err != nil {
		return nil, err
	}
	return Filter(base, f.filters...), nil
}
