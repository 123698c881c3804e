package flwor

import (
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
)

// Tuple is a snapshot of the values of the variables in scope at one point of
// a pipeline, in the order of the scope.
type Tuple []item.Sequence

// capture copies the current values of scope out of the frame. Clauses that
// buffer tuples must capture them because the frame is overwritten in place
// by the next upstream pull.
func capture(dc *expr.DynamicContext, scope []*expr.Binding) (Tuple, error) {
	t := make(Tuple, len(scope))
	for i, b := range scope {
		v, err := dc.Lookup(b)
		if err != nil {
			return nil, err
		}
		t[i] = v
	}
	return t, nil
}

// restore writes t back into the frame.
func (t Tuple) restore(dc *expr.DynamicContext, scope []*expr.Binding) error {
	for i, b := range scope {
		if err := dc.Bind(b, t[i]); err != nil {
			return err
		}
	}
	return nil
}
