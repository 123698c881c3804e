package expr

import (
	"context"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Literal is a constant sequence.
type Literal struct {
	Value item.Sequence
}

var _ Expression = (*Literal)(nil)

// NewLiteral returns a literal holding the given items.
func NewLiteral(items ...item.Item) *Literal {
	return &Literal{Value: items}
}

func (l *Literal) EvaluateItem(ctx context.Context, dc *DynamicContext) (item.Item, error) {
	switch len(l.Value) {
	case 0:
		return nil, nil
	case 1:
		return l.Value[0], nil
	}
	return nil, evalerr.TypeError("a sequence of more than one item is not allowed as the value of %s", l)
}

func (l *Literal) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	return fromSequence(l.Value), nil
}

func (l *Literal) EffectiveBooleanValue(ctx context.Context, dc *DynamicContext) (bool, error) {
	return item.EffectiveBooleanValue(l.Value)
}

func (l *Literal) Copy(*Rebinder) Expression {
	return &Literal{Value: l.Value}
}

func (l *Literal) String() string {
	if len(l.Value) == 1 {
		return item.Describe(l.Value[0])
	}
	return l.Value.String()
}

// IsLiteral reports whether e is a Literal.
func IsLiteral(e Expression) bool {
	_, ok := e.(*Literal)
	return ok
}

// VariableReference evaluates to the value of a variable.
type VariableReference struct {
	Binding *Binding
}

var _ Expression = (*VariableReference)(nil)

func NewVariableReference(b *Binding) *VariableReference {
	return &VariableReference{Binding: b}
}

func (v *VariableReference) EvaluateItem(ctx context.Context, dc *DynamicContext) (item.Item, error) {
	seq, err := dc.Lookup(v.Binding)
	if err != nil {
		return nil, err
	}
	switch len(seq) {
	case 0:
		return nil, nil
	case 1:
		return seq[0], nil
	}
	return nil, evalerr.TypeError("a sequence of more than one item is not allowed as the value of %s", v)
}

func (v *VariableReference) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	seq, err := dc.Lookup(v.Binding)
	if err != nil {
		return nil, err
	}
	return fromSequence(seq), nil
}

func (v *VariableReference) EffectiveBooleanValue(ctx context.Context, dc *DynamicContext) (bool, error) {
	seq, err := dc.Lookup(v.Binding)
	if err != nil {
		return false, err
	}
	return item.EffectiveBooleanValue(seq)
}

func (v *VariableReference) Copy(r *Rebinder) Expression {
	return &VariableReference{Binding: r.Rebind(v.Binding)}
}

func (v *VariableReference) String() string {
	return v.Binding.String()
}

// ContextItem evaluates to the context item.
type ContextItem struct{}

var _ Expression = ContextItem{}

func (ContextItem) EvaluateItem(ctx context.Context, dc *DynamicContext) (item.Item, error) {
	it, ok := dc.ContextItem()
	if !ok {
		return nil, evalerr.New(evalerr.CodeUndefinedVariable, "the context item is absent")
	}
	return it, nil
}

func (c ContextItem) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	it, err := c.EvaluateItem(ctx, dc)
	if err != nil {
		return nil, err
	}
	return sequence.Single(it), nil
}

func (c ContextItem) EffectiveBooleanValue(ctx context.Context, dc *DynamicContext) (bool, error) {
	it, err := c.EvaluateItem(ctx, dc)
	if err != nil {
		return false, err
	}
	return item.EffectiveBooleanValue(item.Of(it))
}

func (ContextItem) Copy(*Rebinder) Expression {
	return ContextItem{}
}

func (ContextItem) String() string {
	return "."
}

// Concat evaluates to the concatenation of its operands.
type Concat struct {
	base
	Operands []Expression
}

var _ Expression = (*Concat)(nil)

func NewConcat(operands ...Expression) *Concat {
	c := &Concat{Operands: operands}
	c.self = c
	return c
}

func (c *Concat) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	iters := make([]sequence.Iterator[item.Item], 0, len(c.Operands))
	for _, op := range c.Operands {
		it, err := op.Iterate(ctx, dc)
		if err != nil {
			for _, started := range iters {
				started.Stop()
			}
			return nil, err
		}
		iters = append(iters, it)
	}
	return sequence.Concat(iters...), nil
}

func (c *Concat) Copy(r *Rebinder) Expression {
	ops := make([]Expression, len(c.Operands))
	for i, op := range c.Operands {
		ops[i] = op.Copy(r)
	}
	return NewConcat(ops...)
}

func (c *Concat) String() string {
	return "(" + joinExpressions(c.Operands, ", ") + ")"
}

// Data atomizes the value of its operand.
type Data struct {
	base
	Operand Expression
}

var _ Expression = (*Data)(nil)

func NewData(operand Expression) *Data {
	d := &Data{Operand: operand}
	d.self = d
	return d
}

func (d *Data) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	it, err := d.Operand.Iterate(ctx, dc)
	if err != nil {
		return nil, err
	}
	return sequence.FlatMap(it, func(_ context.Context, v item.Item) (sequence.Iterator[item.Item], error) {
		values, err := item.AtomizeItem(v)
		if err != nil {
			return nil, err
		}
		out := make([]item.Item, len(values))
		for i, a := range values {
			out[i] = a
		}
		return sequence.FromSlice(out), nil
	}), nil
}

func (d *Data) Copy(r *Rebinder) Expression {
	return NewData(d.Operand.Copy(r))
}

func (d *Data) String() string {
	return "data(" + d.Operand.String() + ")"
}
