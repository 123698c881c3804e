// Package sorting implements multi-key stable sorting of values by atomic
// sort keys, with comparators built from sort key definitions.
package sorting

import (
	"context"

	"github.com/openfga/flwor/pkg/compare"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
)

const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"

	CaseOrderUpperFirst = "upper-first"
	CaseOrderLowerFirst = "lower-first"

	DataTypeText   = "text"
	DataTypeNumber = "number"
)

// KeyDefinition describes one sort key. Key is evaluated once per sorted
// value. The ordering parameters are expressions so that they can depend on
// the dynamic context; a nil parameter takes its default.
type KeyDefinition struct {
	Key expr.Expression

	// Order evaluates to "ascending" (the default) or "descending".
	Order expr.Expression
	// CaseOrder evaluates to "upper-first" or "lower-first".
	CaseOrder expr.Expression
	// Language evaluates to a language tag selecting a UCA tailoring.
	Language expr.Expression
	// Collation evaluates to a collation URI. It takes precedence over
	// Language and CaseOrder.
	Collation expr.Expression
	// DataType evaluates to "text" or "number". Without it values are
	// compared according to their own types.
	DataType expr.Expression

	// EmptyGreatest sorts empty keys after all other values.
	EmptyGreatest bool
}

// Ascending returns a key definition with default parameters.
func Ascending(key expr.Expression) KeyDefinition {
	return KeyDefinition{Key: key}
}

// Descending returns a key definition sorting in descending order.
func Descending(key expr.Expression) KeyDefinition {
	return KeyDefinition{Key: key, Order: literal(OrderDescending)}
}

func literal(s string) expr.Expression {
	return expr.NewLiteral(item.String(s))
}

// WithCollation returns a copy of k using the collation with the given URI.
func (k KeyDefinition) WithCollation(uri string) KeyDefinition {
	k.Collation = literal(uri)
	return k
}

// WithDataType returns a copy of k with the given data type.
func (k KeyDefinition) WithDataType(dataType string) KeyDefinition {
	k.DataType = literal(dataType)
	return k
}

// WithLanguage returns a copy of k with the given language and case order.
// Either may be empty.
func (k KeyDefinition) WithLanguage(lang, caseOrder string) KeyDefinition {
	if lang != "" {
		k.Language = literal(lang)
	}
	if caseOrder != "" {
		k.CaseOrder = literal(caseOrder)
	}
	return k
}

func (k KeyDefinition) parameters() []expr.Expression {
	return []expr.Expression{k.Order, k.CaseOrder, k.Language, k.Collation, k.DataType}
}

// IsFixed reports whether every ordering parameter is absent or a literal,
// so that the comparator does not depend on the dynamic context.
func (k KeyDefinition) IsFixed() bool {
	for _, p := range k.parameters() {
		if p != nil && !expr.IsLiteral(p) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy with variable references redirected by r.
func (k KeyDefinition) Copy(r *expr.Rebinder) KeyDefinition {
	cp := k
	cp.Key = k.Key.Copy(r)
	copyParam := func(e expr.Expression) expr.Expression {
		if e == nil {
			return nil
		}
		return e.Copy(r)
	}
	cp.Order = copyParam(k.Order)
	cp.CaseOrder = copyParam(k.CaseOrder)
	cp.Language = copyParam(k.Language)
	cp.Collation = copyParam(k.Collation)
	cp.DataType = copyParam(k.DataType)
	return cp
}

func (k KeyDefinition) String() string {
	s := k.Key.String()
	if k.Order != nil {
		s += " " + k.Order.String()
	}
	if k.EmptyGreatest {
		s += " empty greatest"
	}
	return s
}

func stringParam(ctx context.Context, e expr.Expression, dc *expr.DynamicContext) (string, error) {
	if e == nil {
		return "", nil
	}
	a, err := expr.EvaluateAtomic(ctx, e, dc)
	if err != nil {
		return "", err
	}
	return a.StringValue(), nil
}

// MakeComparator builds the comparator for k, evaluating its parameters in
// dc. Invalid order, case order, language or data type values fail with
// XTDE0030; an unknown collation fails with FOCH0002.
func (k KeyDefinition) MakeComparator(ctx context.Context, dc *expr.DynamicContext) (compare.AtomicComparer, error) {
	order, err := stringParam(ctx, k.Order, dc)
	if err != nil {
		return nil, err
	}
	switch order {
	case "", OrderAscending, OrderDescending:
	default:
		return nil, evalerr.New(evalerr.CodeInvalidSortParameter, "order must be ascending or descending, found %q", order)
	}

	dataType, err := stringParam(ctx, k.DataType, dc)
	if err != nil {
		return nil, err
	}
	switch dataType {
	case "", DataTypeText, DataTypeNumber:
	default:
		return nil, evalerr.New(evalerr.CodeInvalidSortParameter, "data-type must be text or number, found %q", dataType)
	}

	var base compare.AtomicComparer
	if dataType == DataTypeNumber {
		base = compare.NumericComparer{}
	} else {
		uri, err := stringParam(ctx, k.Collation, dc)
		if err != nil {
			return nil, err
		}
		lang, err := stringParam(ctx, k.Language, dc)
		if err != nil {
			return nil, err
		}
		caseOrder, err := stringParam(ctx, k.CaseOrder, dc)
		if err != nil {
			return nil, err
		}

		coll, err := dc.Collation(uri)
		if err != nil {
			return nil, err
		}
		if uri == "" && (lang != "" || caseOrder != "") {
			coll, err = dc.Collations().ForLanguage(lang, caseOrder)
			if err != nil {
				return nil, err
			}
		}

		if dataType == DataTypeText {
			base = compare.TextComparer{Collation: coll}
		} else {
			base = compare.NewGenericComparer(coll)
		}
	}

	if k.EmptyGreatest {
		base = compare.EmptyGreatest(base)
	}
	if order == OrderDescending {
		base = compare.Descending(base)
	}
	return base, nil
}
