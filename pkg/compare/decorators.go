package compare

import (
	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/item"
)

type descending struct {
	base AtomicComparer
}

// Descending reverses the order of base. Equality keys are unchanged.
func Descending(base AtomicComparer) AtomicComparer {
	if d, ok := base.(descending); ok {
		return d.base
	}
	return descending{base: base}
}

func (d descending) Compare(a, b item.Atomic) (int, error) {
	c, err := d.base.Compare(a, b)
	return -c, err
}

func (d descending) ComparisonKey(a item.Atomic) (Key, error) {
	return d.base.ComparisonKey(a)
}

type emptyGreatest struct {
	base AtomicComparer
}

// EmptyGreatest places empty keys after every present value instead of
// before. Apply it before Descending so that the placement is relative to
// the ascending order.
func EmptyGreatest(base AtomicComparer) AtomicComparer {
	return emptyGreatest{base: base}
}

func (e emptyGreatest) Compare(a, b item.Atomic) (int, error) {
	if a.IsAbsent() || b.IsAbsent() {
		return -compareAbsent(a, b), nil
	}
	return e.base.Compare(a, b)
}

func (e emptyGreatest) ComparisonKey(a item.Atomic) (Key, error) {
	return e.base.ComparisonKey(a)
}

// NumericComparer converts both operands to doubles before comparing them.
// Values that do not convert become NaN.
type NumericComparer struct {
	// NaNGreatest places NaN after every other number instead of before.
	NaNGreatest bool
}

var _ AtomicComparer = NumericComparer{}

func (n NumericComparer) Compare(a, b item.Atomic) (int, error) {
	if a.IsAbsent() || b.IsAbsent() {
		return compareAbsent(a, b), nil
	}
	return compareNumbers(a.ToDouble(), b.ToDouble(), n.NaNGreatest), nil
}

func (n NumericComparer) ComparisonKey(a item.Atomic) (Key, error) {
	if a.IsAbsent() {
		return Key{class: classAbsent}, nil
	}
	return numberKey(a.ToDouble()), nil
}

// TextComparer compares the string values of its operands under a
// collation, whatever their types.
type TextComparer struct {
	Collation collation.Collation
}

var _ AtomicComparer = TextComparer{}

func (t TextComparer) collation() collation.Collation {
	if t.Collation == nil {
		return collation.Codepoint
	}
	return t.Collation
}

func (t TextComparer) Compare(a, b item.Atomic) (int, error) {
	if a.IsAbsent() || b.IsAbsent() {
		return compareAbsent(a, b), nil
	}
	return t.collation().CompareStrings(a.StringValue(), b.StringValue()), nil
}

func (t TextComparer) ComparisonKey(a item.Atomic) (Key, error) {
	if a.IsAbsent() {
		return Key{class: classAbsent}, nil
	}
	return Key{class: classString, s: t.collation().Key(a.StringValue())}, nil
}

// Equal reports whether a and b are equal under c.
func Equal(c AtomicComparer, a, b item.Atomic) (bool, error) {
	ka, err := c.ComparisonKey(a)
	if err != nil {
		return false, err
	}
	kb, err := c.ComparisonKey(b)
	if err != nil {
		return false, err
	}
	return ka == kb, nil
}
