// Package grouping partitions a population of items into groups: by equal
// keys, by adjacent equal keys, or at items matching a boundary pattern.
//
// Every grouping consumes its population in one eager pass. All groups exist
// before the first call to Next returns, and a failure while building aborts
// the grouping without exposing any group.
package grouping

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openfga/flwor/internal/build"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

var populationSizeHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: build.ProjectName,
	Name:      "grouping_population_size",
	Help:      "Number of items consumed by one grouping pass.",
	Buckets:   []float64{1, 10, 100, 1000, 10000, 100000},
}, []string{"algorithm"})

const (
	algorithmGroupBy       = "group_by"
	algorithmGroupAdjacent = "group_adjacent"
	algorithmStartingWith  = "group_starting_with"
	algorithmEndingWith    = "group_ending_with"
)

// Group is a grouping key with its members in population order. Boundary
// groupings produce groups without a key.
type Group struct {
	Key     []item.Atomic
	Members []item.Item
}

// Leading returns the first member of the group.
func (g Group) Leading() item.Item {
	return g.Members[0]
}

// GroupIterator iterates over groups. Next returns the leading item of the
// next group; the other accessors describe the group most recently returned.
type GroupIterator interface {
	sequence.Iterator[item.Item]

	// CurrentGroupingKey returns the key of the current group. It is nil for
	// boundary groupings and before the first call to Next.
	CurrentGroupingKey() []item.Atomic

	// IterateCurrentGroup returns a new iterator over the members of the
	// current group, positioned at the first member. Each call returns an
	// independent iterator.
	IterateCurrentGroup() sequence.Iterator[item.Item]

	// CurrentGroup returns the current group.
	CurrentGroup() (Group, bool)
}

// groups is the GroupIterator shared by all grouping disciplines: a list of
// groups fully built before iteration starts.
type groups struct {
	list     []Group
	position int
}

var _ GroupIterator = (*groups)(nil)

func newGroups(list []Group) *groups {
	return &groups{list: list}
}

func (g *groups) Next(ctx context.Context) (item.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.position < 0 || g.position >= len(g.list) {
		g.position = -1
		return nil, sequence.ErrIteratorDone
	}
	g.position++
	return g.list[g.position-1].Leading(), nil
}

func (g *groups) Current() (item.Item, bool) {
	grp, ok := g.CurrentGroup()
	if !ok {
		return nil, false
	}
	return grp.Leading(), true
}

func (g *groups) Position() int {
	return g.position
}

// Another shares the built groups with the receiver.
func (g *groups) Another() (sequence.Iterator[item.Item], error) {
	return newGroups(g.list), nil
}

func (g *groups) Stop() {}

func (g *groups) CurrentGroup() (Group, bool) {
	if g.position <= 0 {
		return Group{}, false
	}
	return g.list[g.position-1], true
}

func (g *groups) CurrentGroupingKey() []item.Atomic {
	grp, _ := g.CurrentGroup()
	return grp.Key
}

func (g *groups) IterateCurrentGroup() sequence.Iterator[item.Item] {
	grp, ok := g.CurrentGroup()
	if !ok {
		return sequence.Empty[item.Item]()
	}
	return sequence.FromSlice(grp.Members)
}

// Collect returns every group of it, in order.
func Collect(ctx context.Context, it GroupIterator) ([]Group, error) {
	defer it.Stop()

	var out []Group
	for {
		if _, err := it.Next(ctx); err != nil {
			if sequence.IsDone(err) {
				return out, nil
			}
			return nil, err
		}
		grp, _ := it.CurrentGroup()
		out = append(out, grp)
	}
}
