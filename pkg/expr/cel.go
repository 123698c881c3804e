package expr

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
	"golang.org/x/exp/maps"

	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// SelfVariable is the CEL variable bound to the context item, or null when
// there is none.
const SelfVariable = "self"

var celBaseEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable(SelfVariable, cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to construct CEL base env: %v", err))
	}

	celBaseEnv = env
}

// CompilationError is returned when a CEL expression does not compile.
type CompilationError struct {
	Expression string
	Cause      error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile expression %q: %v", e.Expression, e.Cause)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// Nativer is implemented by items that have a Go representation other than
// their string value. Atomic values and JSON tree nodes implement it.
type Nativer interface {
	Native() any
}

// ResultConverter turns a CEL map result, already converted to
// map[string]any, into an item.
type ResultConverter func(v map[string]any) (item.Item, error)

// CELOption configures a CEL expression.
type CELOption func(*CEL)

// WithResultConverter sets how map results are turned into items. Without
// one, a map result is a type error.
func WithResultConverter(fn ResultConverter) CELOption {
	return func(c *CEL) {
		c.convert = fn
	}
}

// CEL is an expression written in the Common Expression Language. Every
// variable in scope is visible to it under its own name: the empty sequence
// as null, a single item as its native value and longer sequences as lists.
// List results are flattened into sequences.
type CEL struct {
	base
	source  string
	vars    []*Binding
	program cel.Program
	convert ResultConverter
}

var _ Expression = (*CEL)(nil)

// CompileCEL compiles source with the given variables in scope. When several
// bindings share a name, the last one wins.
func CompileCEL(source string, vars []*Binding, opts ...CELOption) (*CEL, error) {
	byName := map[string]*Binding{}
	for _, b := range vars {
		byName[b.Name()] = b
	}
	names := maps.Keys(byName)
	slices.Sort(names)

	envOpts := make([]cel.EnvOption, 0, len(names))
	visible := make([]*Binding, 0, len(names))
	for _, name := range names {
		envOpts = append(envOpts, cel.Variable(name, cel.DynType))
		visible = append(visible, byName[name])
	}

	env, err := celBaseEnv.Extend(envOpts...)
	if err != nil {
		return nil, &CompilationError{Expression: source, Cause: err}
	}

	ast, issues := env.Compile(source)
	if issues != nil {
		if err := issues.Err(); err != nil {
			return nil, &CompilationError{Expression: source, Cause: err}
		}
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, &CompilationError{
			Expression: source,
			Cause:      fmt.Errorf("program construction: %w", err),
		}
	}

	c := &CEL{source: source, vars: visible, program: prg}
	c.self = c
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustCompileCEL is like CompileCEL but panics on error.
func MustCompileCEL(source string, vars []*Binding, opts ...CELOption) *CEL {
	c, err := CompileCEL(source, vars, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *CEL) activation(dc *DynamicContext) (map[string]any, error) {
	act := make(map[string]any, len(c.vars)+1)
	for _, b := range c.vars {
		seq, err := dc.Lookup(b)
		if err != nil {
			return nil, err
		}
		act[b.Name()] = nativeSequence(seq)
	}
	if it, ok := dc.ContextItem(); ok {
		act[SelfVariable] = nativeItem(it)
	} else {
		act[SelfVariable] = nil
	}
	return act, nil
}

func (c *CEL) evaluate(ctx context.Context, dc *DynamicContext) (item.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	act, err := c.activation(dc)
	if err != nil {
		return nil, err
	}

	out, _, err := c.program.Eval(act)
	if err != nil {
		if strings.Contains(err.Error(), "no such overload") {
			return nil, &evalerr.DynamicError{
				Code:       evalerr.CodeTypeError,
				Expression: c.source,
				Message:    "operands have incompatible types",
				Cause:      err,
			}
		}
		return nil, &evalerr.DynamicError{
			Code:       evalerr.CodeGeneral,
			Expression: c.source,
			Message:    "expression evaluation failed",
			Cause:      err,
		}
	}
	return c.toSequence(out, nil)
}

func (c *CEL) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	seq, err := c.evaluate(ctx, dc)
	if err != nil {
		return nil, err
	}
	return fromSequence(seq), nil
}

func (c *CEL) Copy(r *Rebinder) Expression {
	vars := make([]*Binding, len(c.vars))
	for i, b := range c.vars {
		vars[i] = r.Rebind(b)
	}
	cp := &CEL{source: c.source, vars: vars, program: c.program, convert: c.convert}
	cp.self = cp
	return cp
}

func (c *CEL) String() string {
	return c.source
}

// Variables returns the bindings the expression reads.
func (c *CEL) Variables() []*Binding {
	return c.vars
}

func (c *CEL) toSequence(v ref.Val, out item.Sequence) (item.Sequence, error) {
	switch val := v.(type) {
	case types.Null:
		return out, nil
	case types.Bool:
		return append(out, item.Boolean(bool(val))), nil
	case types.Int:
		return append(out, item.Integer(int64(val))), nil
	case types.Uint:
		return append(out, item.Integer(int64(val))), nil
	case types.Double:
		return append(out, item.Double(float64(val))), nil
	case types.String:
		return append(out, item.String(string(val))), nil
	case traits.Lister:
		it := val.Iterator()
		for it.HasNext() == types.True {
			var err error
			if out, err = c.toSequence(it.Next(), out); err != nil {
				return nil, err
			}
		}
		return out, nil
	case traits.Mapper:
		if c.convert == nil {
			return nil, evalerr.TypeError("expression %s produced a map", c.source)
		}
		native, err := toNative(val)
		if err != nil {
			return nil, err
		}
		converted, err := c.convert(native.(map[string]any))
		if err != nil {
			return nil, err
		}
		return append(out, converted), nil
	}
	return nil, evalerr.TypeError("expression %s produced an unsupported value of type %s", c.source, v.Type())
}

func toNative(v ref.Val) (any, error) {
	switch val := v.(type) {
	case types.Null:
		return nil, nil
	case types.Bool:
		return bool(val), nil
	case types.Int:
		return int64(val), nil
	case types.Uint:
		return int64(val), nil
	case types.Double:
		return float64(val), nil
	case types.String:
		return string(val), nil
	case traits.Mapper:
		m := map[string]any{}
		it := val.Iterator()
		for it.HasNext() == types.True {
			k := it.Next()
			key, ok := k.(types.String)
			if !ok {
				return nil, evalerr.TypeError("map keys must be strings, found %s", k.Type())
			}
			nv, err := toNative(val.Get(k))
			if err != nil {
				return nil, err
			}
			m[string(key)] = nv
		}
		return m, nil
	case traits.Lister:
		var list []any
		it := val.Iterator()
		for it.HasNext() == types.True {
			nv, err := toNative(it.Next())
			if err != nil {
				return nil, err
			}
			list = append(list, nv)
		}
		return list, nil
	}
	return nil, evalerr.TypeError("unsupported value of type %s", v.Type())
}

func nativeItem(it item.Item) any {
	if n, ok := it.(Nativer); ok {
		return n.Native()
	}
	return it.StringValue()
}

func nativeSequence(seq item.Sequence) any {
	switch len(seq) {
	case 0:
		return nil
	case 1:
		return nativeItem(seq[0])
	}
	list := make([]any, len(seq))
	for i, it := range seq {
		list[i] = nativeItem(it)
	}
	return list
}
