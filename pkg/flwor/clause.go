package flwor

import (
	"strings"

	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/sorting"
)

// Kind identifies the kind of a clause.
type Kind int

const (
	KindFor Kind = iota
	KindLet
	KindWhere
	KindOrderBy
	KindGroupBy
	KindCount
	KindTrace
)

func (k Kind) String() string {
	switch k {
	case KindFor:
		return "for"
	case KindLet:
		return "let"
	case KindWhere:
		return "where"
	case KindOrderBy:
		return "order by"
	case KindGroupBy:
		return "group by"
	case KindCount:
		return "count"
	case KindTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// label is the Kind as used in metric labels.
func (k Kind) label() string {
	return strings.ReplaceAll(k.String(), " ", "_")
}

// Clause is one stage of a FLWOR pipeline. The set of clauses is closed: the
// concrete types are ForClause, LetClause, WhereClause, OrderByClause,
// GroupByClause, CountClause and TraceClause. Clauses are immutable once
// built.
type Clause interface {
	Kind() Kind

	// Declared returns the variables the clause binds for downstream
	// clauses.
	Declared() []*expr.Binding

	String() string

	copyClause(r *expr.Rebinder) Clause
}

// ForClause binds Var to each item of Sequence in turn, and Position, if set,
// to the 1-based position of the item. With AllowingEmpty an empty sequence
// still yields one tuple, with Var bound to the empty sequence and Position
// to 0.
type ForClause struct {
	Var           *expr.Binding
	Position      *expr.Binding
	Sequence      expr.Expression
	AllowingEmpty bool
}

func (c *ForClause) Kind() Kind { return KindFor }

func (c *ForClause) Declared() []*expr.Binding {
	if c.Position != nil {
		return []*expr.Binding{c.Var, c.Position}
	}
	return []*expr.Binding{c.Var}
}

func (c *ForClause) String() string {
	var sb strings.Builder
	sb.WriteString("for ")
	sb.WriteString(c.Var.String())
	if c.AllowingEmpty {
		sb.WriteString(" allowing empty")
	}
	if c.Position != nil {
		sb.WriteString(" at ")
		sb.WriteString(c.Position.String())
	}
	sb.WriteString(" in ")
	sb.WriteString(c.Sequence.String())
	return sb.String()
}

func (c *ForClause) copyClause(r *expr.Rebinder) Clause {
	seq := c.Sequence.Copy(r)
	return &ForClause{
		Var:           r.Fresh(c.Var),
		Position:      r.Fresh(c.Position),
		Sequence:      seq,
		AllowingEmpty: c.AllowingEmpty,
	}
}

// LetClause binds Var to the whole value of Value.
type LetClause struct {
	Var   *expr.Binding
	Value expr.Expression
}

func (c *LetClause) Kind() Kind { return KindLet }

func (c *LetClause) Declared() []*expr.Binding { return []*expr.Binding{c.Var} }

func (c *LetClause) String() string {
	return "let " + c.Var.String() + " := " + c.Value.String()
}

func (c *LetClause) copyClause(r *expr.Rebinder) Clause {
	value := c.Value.Copy(r)
	return &LetClause{Var: r.Fresh(c.Var), Value: value}
}

// WhereClause keeps the tuples for which Predicate is true.
type WhereClause struct {
	Predicate expr.Expression
}

func (c *WhereClause) Kind() Kind { return KindWhere }

func (c *WhereClause) Declared() []*expr.Binding { return nil }

func (c *WhereClause) String() string {
	return "where " + c.Predicate.String()
}

func (c *WhereClause) copyClause(r *expr.Rebinder) Clause {
	return &WhereClause{Predicate: c.Predicate.Copy(r)}
}

// OrderByClause reorders the tuple stream by its sort keys. The sort is
// stable.
type OrderByClause struct {
	Keys *sorting.Chain
}

// OrderBy returns an order-by clause over the given keys.
func OrderBy(keys ...sorting.KeyDefinition) *OrderByClause {
	return &OrderByClause{Keys: sorting.NewChain(keys...)}
}

func (c *OrderByClause) Kind() Kind { return KindOrderBy }

func (c *OrderByClause) Declared() []*expr.Binding { return nil }

func (c *OrderByClause) String() string {
	return "order by " + c.Keys.String()
}

func (c *OrderByClause) copyClause(r *expr.Rebinder) Clause {
	return &OrderByClause{Keys: c.Keys.Copy(r)}
}

// GroupingSpec declares one grouping variable of a group-by clause. Key must
// evaluate to at most one atomic value, compared under Collation (the default
// collation when empty).
type GroupingSpec struct {
	Var       *expr.Binding
	Key       expr.Expression
	Collation string
}

// GroupByClause partitions the tuple stream by the values of its grouping
// keys and emits one tuple per group, in order of first appearance. In each
// output tuple the grouping variables hold the group's key and every other
// variable in scope holds the concatenation of its values over the group.
type GroupByClause struct {
	Specs []GroupingSpec
}

func (c *GroupByClause) Kind() Kind { return KindGroupBy }

func (c *GroupByClause) Declared() []*expr.Binding {
	out := make([]*expr.Binding, len(c.Specs))
	for i, s := range c.Specs {
		out[i] = s.Var
	}
	return out
}

func (c *GroupByClause) String() string {
	parts := make([]string, len(c.Specs))
	for i, s := range c.Specs {
		parts[i] = s.Var.String() + " := " + s.Key.String()
		if s.Collation != "" {
			parts[i] += " collation \"" + s.Collation + "\""
		}
	}
	return "group by " + strings.Join(parts, ", ")
}

func (c *GroupByClause) copyClause(r *expr.Rebinder) Clause {
	specs := make([]GroupingSpec, len(c.Specs))
	for i, s := range c.Specs {
		specs[i] = GroupingSpec{Key: s.Key.Copy(r), Collation: s.Collation}
	}
	for i, s := range c.Specs {
		specs[i].Var = r.Fresh(s.Var)
	}
	return &GroupByClause{Specs: specs}
}

// CountClause binds Var to the 1-based ordinal of each tuple passing through
// it.
type CountClause struct {
	Var *expr.Binding
}

func (c *CountClause) Kind() Kind { return KindCount }

func (c *CountClause) Declared() []*expr.Binding { return []*expr.Binding{c.Var} }

func (c *CountClause) String() string {
	return "count " + c.Var.String()
}

func (c *CountClause) copyClause(r *expr.Rebinder) Clause {
	return &CountClause{Var: r.Fresh(c.Var)}
}

// TraceClause reports each tuple passing through it to the trace listener of
// the expression. It binds nothing and does not alter the tuple stream.
type TraceClause struct {
	Label string
}

func (c *TraceClause) Kind() Kind { return KindTrace }

func (c *TraceClause) Declared() []*expr.Binding { return nil }

func (c *TraceClause) String() string {
	return "trace " + c.Label
}

func (c *TraceClause) copyClause(*expr.Rebinder) Clause {
	return &TraceClause{Label: c.Label}
}
