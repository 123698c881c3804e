package expr

import (
	"context"
	"fmt"
	"strings"

	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// FunctionImpl computes a function result from fully evaluated arguments.
type FunctionImpl func(ctx context.Context, dc *DynamicContext, args []item.Sequence) (item.Sequence, error)

// Function is a call to a function implemented in Go.
type Function struct {
	base
	Name string
	Args []Expression
	Impl FunctionImpl
}

var _ Expression = (*Function)(nil)

func NewFunction(name string, impl FunctionImpl, args ...Expression) *Function {
	f := &Function{Name: name, Args: args, Impl: impl}
	f.self = f
	return f
}

func (f *Function) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	args := make([]item.Sequence, len(f.Args))
	for i, a := range f.Args {
		v, err := Evaluate(ctx, a, dc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	out, err := f.Impl(ctx, dc, args)
	if err != nil {
		return nil, evalerr.Wrap(err, "", f.String())
	}
	return fromSequence(out), nil
}

func (f *Function) Copy(r *Rebinder) Expression {
	args := make([]Expression, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.Copy(r)
	}
	return NewFunction(f.Name, f.Impl, args...)
}

func (f *Function) String() string {
	return f.Name + "(" + joinExpressions(f.Args, ", ") + ")"
}

// BuiltinArity is the number of arguments a builtin takes; -1 means any.
type BuiltinArity int

type builtin struct {
	arity BuiltinArity
	impl  FunctionImpl
}

var builtins = map[string]builtin{
	"count": {arity: 1, impl: func(_ context.Context, _ *DynamicContext, args []item.Sequence) (item.Sequence, error) {
		return item.Of(item.Integer(int64(len(args[0])))), nil
	}},
	"exists": {arity: 1, impl: func(_ context.Context, _ *DynamicContext, args []item.Sequence) (item.Sequence, error) {
		return item.Of(item.Boolean(len(args[0]) > 0)), nil
	}},
	"empty": {arity: 1, impl: func(_ context.Context, _ *DynamicContext, args []item.Sequence) (item.Sequence, error) {
		return item.Of(item.Boolean(len(args[0]) == 0)), nil
	}},
	"string": {arity: 1, impl: func(_ context.Context, _ *DynamicContext, args []item.Sequence) (item.Sequence, error) {
		switch len(args[0]) {
		case 0:
			return item.Of(item.String("")), nil
		case 1:
			return item.Of(item.String(args[0][0].StringValue())), nil
		}
		return nil, evalerr.TypeError("string() requires at most one item, found %d", len(args[0]))
	}},
	"concat": {arity: -1, impl: func(_ context.Context, _ *DynamicContext, args []item.Sequence) (item.Sequence, error) {
		var sb strings.Builder
		for _, a := range args {
			values, err := item.Atomize(a)
			if err != nil {
				return nil, err
			}
			if len(values) > 1 {
				return nil, evalerr.TypeError("concat() arguments must be single values")
			}
			for _, v := range values {
				sb.WriteString(v.StringValue())
			}
		}
		return item.Of(item.String(sb.String())), nil
	}},
	"distinct-values": {arity: 1, impl: distinctValues},
}

func distinctValues(_ context.Context, dc *DynamicContext, args []item.Sequence) (item.Sequence, error) {
	values, err := item.Atomize(args[0])
	if err != nil {
		return nil, err
	}
	coll, err := dc.Collation("")
	if err != nil {
		return nil, err
	}
	cmp := compare.NewGenericComparer(coll)
	seen := map[compare.Key]struct{}{}
	var out item.Sequence
	for _, v := range values {
		k, err := cmp.ComparisonKey(v)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// Call returns a call to the named builtin function: count, exists, empty,
// string, concat or distinct-values.
func Call(name string, args ...Expression) (*Function, error) {
	b, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	if b.arity >= 0 && int(b.arity) != len(args) {
		return nil, fmt.Errorf("function %s expects %d arguments, got %d", name, b.arity, len(args))
	}
	return NewFunction(name, b.impl, args...), nil
}

func joinExpressions(exprs []Expression, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
