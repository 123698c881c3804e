package docorder

import (
	"context"

	"github.com/emirpasic/gods/trees/binaryheap"

	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Union merges two iterators that are each in document order, without
// duplicates, into one.
func Union(a, b sequence.Iterator[item.Node], cmp Comparer) sequence.Iterator[item.Node] {
	if cmp == nil {
		cmp = Compare
	}
	return sequence.Merge(a, b, func(x, y item.Node) int { return cmp(x, y) })
}

// MergeAll merges any number of iterators that are each in document order.
// Nodes present in several inputs are yielded once.
func MergeAll(cmp Comparer, inputs ...sequence.Iterator[item.Node]) sequence.Iterator[item.Node] {
	if cmp == nil {
		cmp = Compare
	}
	switch len(inputs) {
	case 0:
		return sequence.Empty[item.Node]()
	case 1:
		return inputs[0]
	case 2:
		return Union(inputs[0], inputs[1], cmp)
	}
	return &kMerge{inputs: inputs, cmp: cmp}
}

type heapEntry struct {
	node   item.Node
	source int
}

type kMerge struct {
	inputs []sequence.Iterator[item.Node]
	cmp    Comparer
	heap   *binaryheap.Heap

	current  item.Node
	position int
	err      error
}

func (m *kMerge) init(ctx context.Context) error {
	m.heap = binaryheap.NewWith(func(a, b interface{}) int {
		return m.cmp(a.(heapEntry).node, b.(heapEntry).node)
	})
	for i := range m.inputs {
		if err := m.pull(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (m *kMerge) pull(ctx context.Context, source int) error {
	n, err := m.inputs[source].Next(ctx)
	if err != nil {
		if sequence.IsDone(err) {
			return nil
		}
		return err
	}
	m.heap.Push(heapEntry{node: n, source: source})
	return nil
}

func (m *kMerge) Next(ctx context.Context) (item.Node, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.position < 0 {
		return nil, sequence.ErrIteratorDone
	}
	if m.heap == nil {
		if err := m.init(ctx); err != nil {
			m.err = err
			return nil, err
		}
	}

	for {
		top, ok := m.heap.Pop()
		if !ok {
			m.current = nil
			m.position = -1
			return nil, sequence.ErrIteratorDone
		}
		e := top.(heapEntry)
		if err := m.pull(ctx, e.source); err != nil {
			m.err = err
			return nil, err
		}
		if m.current != nil && e.node.IsSameNode(m.current) {
			continue
		}
		m.current = e.node
		m.position++
		return e.node, nil
	}
}

func (m *kMerge) Current() (item.Node, bool) {
	return m.current, m.position > 0
}

func (m *kMerge) Position() int {
	return m.position
}

func (m *kMerge) Another() (sequence.Iterator[item.Node], error) {
	fresh := make([]sequence.Iterator[item.Node], 0, len(m.inputs))
	for _, in := range m.inputs {
		a, err := in.Another()
		if err != nil {
			for _, f := range fresh {
				f.Stop()
			}
			return nil, err
		}
		fresh = append(fresh, a)
	}
	return &kMerge{inputs: fresh, cmp: m.cmp}, nil
}

func (m *kMerge) Stop() {
	for _, in := range m.inputs {
		in.Stop()
	}
}
