package expr

import (
	"context"
	"fmt"

	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Operator is a value comparison operator.
type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpLt Operator = "lt"
	OpLe Operator = "le"
	OpGt Operator = "gt"
	OpGe Operator = "ge"
)

// ParseOperator accepts both the keyword and the symbolic spelling.
func ParseOperator(s string) (Operator, error) {
	switch s {
	case "eq", "=", "==":
		return OpEq, nil
	case "ne", "!=":
		return OpNe, nil
	case "lt", "<":
		return OpLt, nil
	case "le", "<=":
		return OpLe, nil
	case "gt", ">":
		return OpGt, nil
	case "ge", ">=":
		return OpGe, nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}

// ValueComparison compares two single atomic values. It evaluates to the
// empty sequence if either operand is empty. Untyped values compare as
// strings. NaN is unequal to everything.
type ValueComparison struct {
	base
	Op          Operator
	Left, Right Expression
	// Collation is the URI of the collation for strings; empty means the
	// default collation.
	Collation string
}

var _ Expression = (*ValueComparison)(nil)

func NewValueComparison(left Expression, op Operator, right Expression) *ValueComparison {
	v := &ValueComparison{Op: op, Left: left, Right: right}
	v.self = v
	return v
}

func (v *ValueComparison) evaluate(ctx context.Context, dc *DynamicContext) (item.Sequence, error) {
	a, err := EvaluateAtomic(ctx, v.Left, dc)
	if err != nil {
		return nil, err
	}
	b, err := EvaluateAtomic(ctx, v.Right, dc)
	if err != nil {
		return nil, err
	}
	if a.IsAbsent() || b.IsAbsent() {
		return nil, nil
	}
	if a.IsNaN() || b.IsNaN() {
		return item.Of(item.Boolean(v.Op == OpNe)), nil
	}

	coll, err := dc.Collation(v.Collation)
	if err != nil {
		return nil, err
	}
	c, err := compare.NewGenericComparer(coll).Compare(a, b)
	if err != nil {
		return nil, evalerr.Wrap(err, "", v.String())
	}

	var result bool
	switch v.Op {
	case OpEq:
		result = c == 0
	case OpNe:
		result = c != 0
	case OpLt:
		result = c < 0
	case OpLe:
		result = c <= 0
	case OpGt:
		result = c > 0
	case OpGe:
		result = c >= 0
	default:
		return nil, evalerr.New(evalerr.CodeGeneral, "unknown comparison operator %q", v.Op)
	}
	return item.Of(item.Boolean(result)), nil
}

func (v *ValueComparison) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	seq, err := v.evaluate(ctx, dc)
	if err != nil {
		return nil, err
	}
	return fromSequence(seq), nil
}

func (v *ValueComparison) EffectiveBooleanValue(ctx context.Context, dc *DynamicContext) (bool, error) {
	seq, err := v.evaluate(ctx, dc)
	if err != nil {
		return false, err
	}
	return len(seq) == 1 && seq[0].(item.Atomic).Bool(), nil
}

func (v *ValueComparison) Copy(r *Rebinder) Expression {
	cp := NewValueComparison(v.Left.Copy(r), v.Op, v.Right.Copy(r))
	cp.Collation = v.Collation
	return cp
}

func (v *ValueComparison) String() string {
	return v.Left.String() + " " + string(v.Op) + " " + v.Right.String()
}
