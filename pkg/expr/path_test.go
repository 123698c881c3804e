package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
)

func names(t *testing.T, seq item.Sequence) []string {
	t.Helper()
	out := make([]string, 0, len(seq))
	for _, it := range seq {
		n, ok := it.(*testNode)
		require.True(t, ok)
		out = append(out, n.name+"="+n.StringValue())
	}
	return out
}

func TestPath(t *testing.T) {
	ctx := context.Background()
	library := newTree(el("library",
		el("book", leaf("title", "Dune"), leaf("author", "Herbert")),
		el("book", leaf("title", "Emma"), leaf("author", "Austen")),
		el("shelf", el("book", leaf("title", "Ubik"), leaf("author", "Dick"))),
	))

	m := NewSlotManager()
	input := m.Declare("input")
	dc := m.NewContext()
	require.NoError(t, dc.Bind(input, item.Of(library)))
	resolve := m.Lookup

	tests := []struct {
		path     string
		expected []string
	}{
		{path: "$input/book/title", expected: []string{"title=Dune", "title=Emma"}},
		{path: "$input//title", expected: []string{"title=Dune", "title=Emma", "title=Ubik"}},
		{path: "$input/*/author", expected: []string{"author=Herbert", "author=Austen"}},
		{path: "$input//title/..", expected: []string{"book=DuneHerbert", "book=EmmaAusten", "book=UbikDick"}},
		{path: "$input//author/../title", expected: []string{"title=Dune", "title=Emma", "title=Ubik"}},
		{path: "$input/shelf/./book/author", expected: []string{"author=Dick"}},
		{path: "$input/nothing", expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p, err := ParsePath(tt.path, resolve)
			require.NoError(t, err)
			seq, err := Evaluate(ctx, p, dc)
			require.NoError(t, err)
			require.Equal(t, tt.expected, names(t, seq))
		})
	}

	t.Run("relative_to_context_item", func(t *testing.T) {
		p, err := ParsePath("book/author", resolve)
		require.NoError(t, err)
		seq, err := Evaluate(ctx, p, dc.Focus(library, 1))
		require.NoError(t, err)
		require.Equal(t, []string{"author=Herbert", "author=Austen"}, names(t, seq))
		require.Equal(t, "./book/author", p.String())
	})

	t.Run("duplicates_removed", func(t *testing.T) {
		p := NewPath(NewLiteral(library.children[0], library.children[0]), Step{Axis: AxisChild, Name: "title"})
		seq, err := Evaluate(ctx, p, dc)
		require.NoError(t, err)
		require.Equal(t, []string{"title=Dune"}, names(t, seq))
	})

	t.Run("atomic_start", func(t *testing.T) {
		p := NewPath(NewLiteral(item.Integer(1)), Step{Axis: AxisChild})
		_, err := Evaluate(ctx, p, dc)
		require.True(t, evalerr.IsTypeError(err))
	})

	t.Run("parse_errors", func(t *testing.T) {
		for _, bad := range []string{"$missing/a", "/abs", "$input//..", "$input/a//"} {
			_, err := ParsePath(bad, resolve)
			require.Error(t, err, bad)
		}
	})

	t.Run("copy_rebinds_start", func(t *testing.T) {
		p, err := ParsePath("$input/book", resolve)
		require.NoError(t, err)
		r := NewRebinder(m)
		fresh := r.Fresh(input)
		cp := p.Copy(r).(*Path)
		require.Same(t, fresh, cp.Start.(*VariableReference).Binding)
		require.Equal(t, p.Steps, cp.Steps)
	})
}
