package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/logger"
)

func TestDynamicContext(t *testing.T) {
	t.Run("unbound_and_out_of_range_slots", func(t *testing.T) {
		dc := NewDynamicContext(2)
		_, err := dc.Variable(0)
		require.Equal(t, evalerr.CodeUndefinedVariable, evalerr.CodeOf(err))

		_, err = dc.Variable(2)
		require.Equal(t, evalerr.CodeUndefinedVariable, evalerr.CodeOf(err))

		err = dc.SetVariable(-1, nil)
		require.Equal(t, evalerr.CodeUndefinedVariable, evalerr.CodeOf(err))
	})

	t.Run("bind_and_read", func(t *testing.T) {
		dc := NewDynamicContext(1)
		require.NoError(t, dc.SetVariable(0, item.Of(item.Integer(7))))
		v, err := dc.Variable(0)
		require.NoError(t, err)
		require.Equal(t, item.Of(item.Integer(7)), v)

		// the empty sequence is a valid binding
		require.NoError(t, dc.SetVariable(0, nil))
		v, err = dc.Variable(0)
		require.NoError(t, err)
		require.Empty(t, v)
	})

	t.Run("fork_copies_frame", func(t *testing.T) {
		dc := NewDynamicContext(1, WithRunID("run-1"))
		require.NoError(t, dc.SetVariable(0, item.Of(item.String("a"))))

		fork := dc.Fork()
		require.NoError(t, fork.SetVariable(0, item.Of(item.String("b"))))

		v, err := dc.Variable(0)
		require.NoError(t, err)
		require.Equal(t, item.Of(item.String("a")), v)
		require.Equal(t, "run-1", fork.RunID())
	})

	t.Run("focus_shares_frame", func(t *testing.T) {
		dc := NewDynamicContext(1)
		focused := dc.Focus(item.Integer(1), 3)
		require.NoError(t, focused.SetVariable(0, item.Of(item.Boolean(true))))

		_, err := dc.Variable(0)
		require.NoError(t, err)
		it, ok := focused.ContextItem()
		require.True(t, ok)
		require.Equal(t, item.Integer(1), it)
		require.Equal(t, 3, focused.ContextPosition())
		_, ok = dc.ContextItem()
		require.False(t, ok)
	})

	t.Run("grow", func(t *testing.T) {
		dc := NewDynamicContext(0)
		dc.Grow(3)
		require.Equal(t, 3, dc.FrameSize())
		dc.Grow(1)
		require.Equal(t, 3, dc.FrameSize())
	})

	t.Run("defaults_and_options", func(t *testing.T) {
		dc := NewDynamicContext(0)
		require.NotEmpty(t, dc.RunID())
		require.NotNil(t, dc.Logger())
		c, err := dc.Collation("")
		require.NoError(t, err)
		require.Equal(t, collation.CodepointURI, c.URI())

		reg := collation.MustNewRegistry(collation.WithDefault(collation.HTMLASCIICaseInsensitiveURI))
		defer reg.Close()
		l, _ := logger.NewObserverLogger("debug")
		dc = NewDynamicContext(0, WithCollations(reg), WithLogger(l), WithContextItem(item.String("x")))
		c, err = dc.Collation("")
		require.NoError(t, err)
		require.Equal(t, collation.HTMLASCIICaseInsensitiveURI, c.URI())
		require.Same(t, reg, dc.Collations())
		require.Equal(t, l, dc.Logger())
		require.Equal(t, 1, dc.ContextPosition())
	})
}

func TestBindings(t *testing.T) {
	m := NewSlotManager()
	x := m.Declare("x")
	y := m.Declare("y")
	x2 := m.Declare("x")

	require.Equal(t, 0, x.Slot())
	require.Equal(t, 1, y.Slot())
	require.Equal(t, 2, x2.Slot())
	require.Equal(t, 3, m.Size())
	require.Equal(t, "$x", x.String())

	found, ok := m.Lookup("x")
	require.True(t, ok)
	require.Same(t, x2, found)
	_, ok = m.Lookup("z")
	require.False(t, ok)

	r := NewRebinder(m)
	fx := r.Fresh(x)
	require.NotSame(t, x, fx)
	require.Equal(t, "x", fx.Name())
	require.Equal(t, 3, fx.Slot())
	require.Same(t, fx, r.Rebind(x))
	require.Same(t, y, r.Rebind(y))

	var none *Rebinder
	require.Same(t, x, none.Rebind(x))
	require.Same(t, x, none.Fresh(x))

	dc := m.NewContext()
	require.Equal(t, 4, dc.FrameSize())
}
