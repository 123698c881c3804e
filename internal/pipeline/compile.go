package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/openfga/flwor/internal/jsontree"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/flwor"
	"github.com/openfga/flwor/pkg/logger"
	"github.com/openfga/flwor/pkg/sorting"
	"github.com/openfga/flwor/pkg/telemetry"
)

// InputVariable is the variable every pipeline sees its input document as.
const InputVariable = "input"

// Program is a compiled pipeline.
type Program struct {
	Expression *flwor.Expression
	Input      *expr.Binding

	slots *expr.SlotManager
}

// NewContext returns a dynamic context sized for the program.
func (p *Program) NewContext(opts ...expr.ContextOption) *expr.DynamicContext {
	return p.slots.NewContext(opts...)
}

type compileOptions struct {
	traceLogger logger.Logger
}

type CompileOption func(*compileOptions)

// WithTraceLogger makes trace clauses log the variables in scope through l
// and open a span per traced tuple.
func WithTraceLogger(l logger.Logger) CompileOption {
	return func(o *compileOptions) {
		o.traceLogger = l
	}
}

// compiler tracks the variables in scope while clauses are compiled.
type compiler struct {
	slots  *expr.SlotManager
	scope  []*expr.Binding
	traces map[string]telemetry.Listener
	opts   compileOptions
}

// Compile turns a definition into an executable program.
func Compile(def *Definition, opts ...CompileOption) (*Program, error) {
	c := &compiler{slots: expr.NewSlotManager(), traces: map[string]telemetry.Listener{}}
	for _, opt := range opts {
		opt(&c.opts)
	}

	input := c.declare(InputVariable)
	clauses := make([]flwor.Clause, 0, len(def.Clauses))
	for i, cd := range def.Clauses {
		clause, err := c.clause(cd)
		if err != nil {
			return nil, fmt.Errorf("%w: clause %d: %w", ErrInvalidDefinition, i, err)
		}
		clauses = append(clauses, clause)
	}

	if def.Return == nil {
		return nil, fmt.Errorf("%w: missing return", ErrInvalidDefinition)
	}
	ret, err := c.expression(*def.Return)
	if err != nil {
		return nil, fmt.Errorf("%w: return: %w", ErrInvalidDefinition, err)
	}

	var flworOpts []flwor.Option
	if len(c.traces) > 0 {
		flworOpts = append(flworOpts, flwor.WithTraceListener(byLabel(c.traces)))
	}
	x, err := flwor.New(clauses, ret, flworOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	return &Program{Expression: x, Input: input, slots: c.slots}, nil
}

var varName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkVar rejects names expressions cannot refer to. YAML reads bare y, n,
// yes, no, on and off as booleans, so those names arrive as "true" or
// "false" unless quoted.
func checkVar(name string) error {
	switch {
	case name == "":
		return errors.New("missing var")
	case name == "true" || name == "false" || name == "null":
		return fmt.Errorf("invalid var %q: reserved word, quote variable names in YAML", name)
	case !varName.MatchString(name):
		return fmt.Errorf("invalid var %q: not an identifier", name)
	}
	return nil
}

func (c *compiler) declare(name string) *expr.Binding {
	b := c.slots.Declare(name)
	c.scope = append(c.scope, b)
	return b
}

func (c *compiler) lookup(name string) (*expr.Binding, bool) {
	for i := len(c.scope) - 1; i >= 0; i-- {
		if c.scope[i].Name() == name {
			return c.scope[i], true
		}
	}
	return nil, false
}

func (c *compiler) expression(e ExprDef) (expr.Expression, error) {
	switch {
	case e.CEL != "" && e.Path != "":
		return nil, errors.New("expression sets both cel and path")
	case e.CEL != "":
		program, err := expr.CompileCEL(e.CEL, c.scope, expr.WithResultConverter(jsontree.FromMap))
		if err != nil {
			return nil, err
		}
		return program, nil
	case e.Path != "":
		path, err := expr.ParsePath(e.Path, c.lookup)
		if err != nil {
			return nil, err
		}
		return path, nil
	default:
		return nil, errors.New("empty expression")
	}
}

func (c *compiler) clause(cd ClauseDef) (flwor.Clause, error) {
	set := 0
	for _, present := range []bool{cd.For != nil, cd.Let != nil, cd.Where != nil, cd.GroupBy != nil, cd.OrderBy != nil, cd.Count != nil, cd.Trace != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("expected exactly one clause, found %d", set)
	}

	switch {
	case cd.For != nil:
		return c.forClause(cd.For)
	case cd.Let != nil:
		if err := checkVar(cd.Let.Var); err != nil {
			return nil, fmt.Errorf("let: %w", err)
		}
		value, err := c.expression(cd.Let.Value)
		if err != nil {
			return nil, fmt.Errorf("let: %w", err)
		}
		return &flwor.LetClause{Var: c.declare(cd.Let.Var), Value: value}, nil
	case cd.Where != nil:
		pred, err := c.expression(*cd.Where)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		return &flwor.WhereClause{Predicate: pred}, nil
	case cd.GroupBy != nil:
		return c.groupByClause(cd.GroupBy)
	case cd.OrderBy != nil:
		return c.orderByClause(cd.OrderBy)
	case cd.Count != nil:
		if err := checkVar(cd.Count.Var); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
		return &flwor.CountClause{Var: c.declare(cd.Count.Var)}, nil
	default:
		return c.traceClause(cd.Trace)
	}
}

func (c *compiler) forClause(d *ForDef) (flwor.Clause, error) {
	if err := checkVar(d.Var); err != nil {
		return nil, fmt.Errorf("for: %w", err)
	}
	if d.At != "" {
		if err := checkVar(d.At); err != nil {
			return nil, fmt.Errorf("for: at: %w", err)
		}
	}
	seq, err := c.expression(d.In)
	if err != nil {
		return nil, fmt.Errorf("for: %w", err)
	}
	clause := &flwor.ForClause{Var: c.declare(d.Var), Sequence: seq, AllowingEmpty: d.AllowingEmpty}
	if d.At != "" {
		clause.Position = c.declare(d.At)
	}
	return clause, nil
}

func (c *compiler) groupByClause(defs []GroupDef) (flwor.Clause, error) {
	if len(defs) == 0 {
		return nil, errors.New("groupBy: no grouping keys")
	}
	specs := make([]flwor.GroupingSpec, len(defs))
	for i, d := range defs {
		if err := checkVar(d.Var); err != nil {
			return nil, fmt.Errorf("groupBy[%d]: %w", i, err)
		}
		key, err := c.expression(d.Key)
		if err != nil {
			return nil, fmt.Errorf("groupBy[%d]: %w", i, err)
		}
		specs[i] = flwor.GroupingSpec{Key: key, Collation: d.Collation}
	}
	// keys see the scope before the clause
	for i, d := range defs {
		specs[i].Var = c.declare(d.Var)
	}
	return &flwor.GroupByClause{Specs: specs}, nil
}

func (c *compiler) orderByClause(defs []OrderDef) (flwor.Clause, error) {
	if len(defs) == 0 {
		return nil, errors.New("orderBy: no sort keys")
	}
	keys := make([]sorting.KeyDefinition, len(defs))
	for i, d := range defs {
		key, err := c.expression(d.Key)
		if err != nil {
			return nil, fmt.Errorf("orderBy[%d]: %w", i, err)
		}
		var k sorting.KeyDefinition
		switch d.Order {
		case "", sorting.OrderAscending:
			k = sorting.Ascending(key)
		case sorting.OrderDescending:
			k = sorting.Descending(key)
		default:
			return nil, fmt.Errorf("orderBy[%d]: unknown order %q", i, d.Order)
		}
		if d.Collation != "" {
			k = k.WithCollation(d.Collation)
		}
		if d.DataType != "" {
			k = k.WithDataType(d.DataType)
		}
		k = k.WithLanguage(d.Language, d.CaseOrder)
		k.EmptyGreatest = d.EmptyGreatest
		keys[i] = k
	}
	return flwor.OrderBy(keys...), nil
}

func (c *compiler) traceClause(d *TraceDef) (flwor.Clause, error) {
	if d.Label == "" {
		return nil, errors.New("trace: missing label")
	}
	if _, ok := c.traces[d.Label]; ok {
		return nil, fmt.Errorf("trace: duplicate label %q", d.Label)
	}
	var listener telemetry.Listener = noopListener{}
	if c.opts.traceLogger != nil {
		vars := append([]*expr.Binding(nil), c.scope[1:]...)
		listener = telemetry.Listeners{
			telemetry.NewSpanListener(vars...),
			telemetry.NewLogListener(c.opts.traceLogger, vars...),
		}
	}
	c.traces[d.Label] = listener
	return &flwor.TraceClause{Label: d.Label}, nil
}

// byLabel dispatches trace notifications to the listener of each trace
// clause.
type byLabel map[string]telemetry.Listener

func (b byLabel) Enter(ctx context.Context, label string, dc *expr.DynamicContext) context.Context {
	if l, ok := b[label]; ok {
		return l.Enter(ctx, label, dc)
	}
	return ctx
}

func (b byLabel) Leave(ctx context.Context, label string, dc *expr.DynamicContext) {
	if l, ok := b[label]; ok {
		l.Leave(ctx, label, dc)
	}
}

type noopListener struct{}

func (noopListener) Enter(ctx context.Context, _ string, _ *expr.DynamicContext) context.Context {
	return ctx
}

func (noopListener) Leave(context.Context, string, *expr.DynamicContext) {}
