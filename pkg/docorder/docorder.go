// Package docorder puts node sequences into document order and removes
// duplicate nodes.
package docorder

import (
	"context"
	"sort"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Comparer orders two nodes. It returns zero only for the same node.
type Comparer func(a, b item.Node) int

// Compare orders nodes by document order.
func Compare(a, b item.Node) int {
	return a.CompareDocumentOrder(b)
}

// indexSorter sorts a permutation of node indices, leaving the nodes in place.
type indexSorter struct {
	nodes []item.Node
	idx   []int
	cmp   Comparer
}

func (s *indexSorter) Len() int           { return len(s.idx) }
func (s *indexSorter) Less(i, j int) bool { return s.cmp(s.nodes[s.idx[i]], s.nodes[s.idx[j]]) < 0 }
func (s *indexSorter) Swap(i, j int)      { s.idx[i], s.idx[j] = s.idx[j], s.idx[i] }

// NewIterator drains input, sorts it with cmp and returns an iterator over
// the distinct nodes in order. A nil cmp means Compare.
//
// The whole input is held in memory, so input must be finite. The returned
// iterator is restartable; Another shares the sorted buffer.
func NewIterator(ctx context.Context, input sequence.Iterator[item.Node], cmp Comparer) (sequence.Iterator[item.Node], error) {
	nodes, err := sequence.Collect(ctx, input)
	if err != nil {
		return nil, err
	}
	return FromNodes(nodes, cmp), nil
}

// FromNodes is NewIterator over an already materialized slice. The slice is
// not modified.
func FromNodes(nodes []item.Node, cmp Comparer) sequence.Iterator[item.Node] {
	if cmp == nil {
		cmp = Compare
	}
	s := &indexSorter{nodes: nodes, idx: make([]int, len(nodes)), cmp: cmp}
	for i := range s.idx {
		s.idx[i] = i
	}
	sort.Sort(s)

	sorted := make([]item.Node, len(nodes))
	for i, j := range s.idx {
		sorted[i] = nodes[j]
	}
	return &iterator{sorted: sorted}
}

// FromItems converts an item sequence to document order. Items that are not
// nodes fail with a type error.
func FromItems(seq item.Sequence, cmp Comparer) (sequence.Iterator[item.Node], error) {
	nodes := make([]item.Node, 0, len(seq))
	for _, it := range seq {
		n, ok := it.(item.Node)
		if !ok {
			return nil, evalerr.TypeError("expected a node, found %s", item.Describe(it))
		}
		nodes = append(nodes, n)
	}
	return FromNodes(nodes, cmp), nil
}

type iterator struct {
	sorted   []item.Node
	next     int
	current  item.Node
	position int
}

func (it *iterator) Next(ctx context.Context) (item.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.position < 0 {
		return nil, sequence.ErrIteratorDone
	}
	for it.next < len(it.sorted) {
		n := it.sorted[it.next]
		it.next++
		if it.current != nil && n.IsSameNode(it.current) {
			continue
		}
		it.current = n
		it.position++
		return n, nil
	}
	it.current = nil
	it.position = -1
	return nil, sequence.ErrIteratorDone
}

func (it *iterator) Current() (item.Node, bool) {
	return it.current, it.position > 0
}

func (it *iterator) Position() int {
	return it.position
}

func (it *iterator) Another() (sequence.Iterator[item.Node], error) {
	return &iterator{sorted: it.sorted}, nil
}

func (it *iterator) Stop() {
	it.next = len(it.sorted)
}
