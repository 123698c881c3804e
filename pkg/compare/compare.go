// Package compare provides comparers over atomic values. Ordering policies
// (direction, placement of empty keys, NaN handling, data type) are separate
// decorators composed around a base comparer.
package compare

import (
	"cmp"
	"math"
	"strconv"

	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
)

// AtomicComparer orders atomic values and derives equality keys for them.
//
// item.Absent stands for an empty key. Compare fails with a type error
// (XPTY0004) when the values are not mutually comparable.
type AtomicComparer interface {
	Compare(a, b item.Atomic) (int, error)

	// ComparisonKey returns a key such that two values are equal under the
	// comparer exactly when their keys are ==.
	ComparisonKey(a item.Atomic) (Key, error)
}

type keyClass uint8

const (
	classAbsent keyClass = iota
	classString
	classNumber
	classNaN
	classBoolean
	classInteger
)

// Key is an equality key for an atomic value. Keys are comparable and can be
// used as map keys.
type Key struct {
	class keyClass
	s     string
	f     float64
	i     int64
	b     bool
}

// String renders the key for diagnostics.
func (k Key) String() string {
	switch k.class {
	case classString:
		return "s:" + k.s
	case classNumber:
		return "n:" + item.Double(k.f).StringValue()
	case classInteger:
		return "n:" + strconv.FormatInt(k.i, 10)
	case classNaN:
		return "n:NaN"
	case classBoolean:
		return "b:" + item.Boolean(k.b).StringValue()
	default:
		return "()"
	}
}

// Bytes returns a binary encoding of the key, used for hashing.
func (k Key) Bytes() []byte {
	out := []byte{byte(k.class)}
	switch k.class {
	case classString:
		out = append(out, k.s...)
	case classNumber:
		bits := math.Float64bits(k.f)
		if k.f == 0 {
			bits = 0
		}
		for i := 0; i < 8; i++ {
			out = append(out, byte(bits>>(8*i)))
		}
	case classInteger:
		for i := 0; i < 8; i++ {
			out = append(out, byte(uint64(k.i)>>(8*i)))
		}
	case classBoolean:
		if k.b {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// GenericComparer compares atomic values of the same category: strings and
// untyped atomics under a collation, numbers numerically, booleans with
// false before true. Empty keys sort first and NaN sorts before every other
// number; NaN equals NaN.
type GenericComparer struct {
	collation collation.Collation
}

var _ AtomicComparer = (*GenericComparer)(nil)

// NewGenericComparer returns a comparer using c for strings. A nil c means
// the codepoint collation.
func NewGenericComparer(c collation.Collation) *GenericComparer {
	if c == nil {
		c = collation.Codepoint
	}
	return &GenericComparer{collation: c}
}

// Collation returns the collation used for strings.
func (g *GenericComparer) Collation() collation.Collation {
	return g.collation
}

func (g *GenericComparer) Compare(a, b item.Atomic) (int, error) {
	if a.IsAbsent() || b.IsAbsent() {
		return compareAbsent(a, b), nil
	}
	ka, kb := a.Kind(), b.Kind()
	switch {
	case ka.IsStringLike() && kb.IsStringLike():
		return g.collation.CompareStrings(a.StringValue(), b.StringValue()), nil
	case ka.IsNumeric() && kb.IsNumeric():
		return compareNumbers(a, b, false), nil
	case ka == item.KindBoolean && kb == item.KindBoolean:
		return compareBooleans(a.Bool(), b.Bool()), nil
	}
	return 0, evalerr.TypeError("cannot compare %s with %s", ka, kb)
}

func (g *GenericComparer) ComparisonKey(a item.Atomic) (Key, error) {
	switch k := a.Kind(); {
	case k == item.KindAbsent:
		return Key{class: classAbsent}, nil
	case k.IsStringLike():
		return Key{class: classString, s: g.collation.Key(a.StringValue())}, nil
	case k.IsNumeric():
		return numberKey(a), nil
	case k == item.KindBoolean:
		return Key{class: classBoolean, b: a.Bool()}, nil
	default:
		return Key{}, evalerr.TypeError("no comparison key for %s", k)
	}
}

// numberKey keys numbers by value. An integer that has no exact double
// keeps its own key, so distinct large integers never collide.
func numberKey(a item.Atomic) Key {
	if a.IsNaN() {
		return Key{class: classNaN}
	}
	if a.Kind() == item.KindInteger {
		i := a.Int()
		if f := float64(i); f >= -twoTo63 && f < twoTo63 && int64(f) == i {
			return Key{class: classNumber, f: f}
		}
		return Key{class: classInteger, i: i}
	}
	return Key{class: classNumber, f: a.Float()}
}

const twoTo63 = float64(1 << 63)

func compareAbsent(a, b item.Atomic) int {
	switch {
	case a.IsAbsent() && b.IsAbsent():
		return 0
	case a.IsAbsent():
		return -1
	default:
		return 1
	}
}

func compareBooleans(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareNumbers orders two numeric values. NaN sorts first, or last when
// nanGreatest is set, and equals itself.
func compareNumbers(a, b item.Atomic, nanGreatest bool) int {
	an, bn := a.IsNaN(), b.IsNaN()
	switch {
	case an && bn:
		return 0
	case an || bn:
		c := 1
		if an {
			c = -1
		}
		if nanGreatest {
			c = -c
		}
		return c
	}
	if a.Kind() == item.KindInteger && b.Kind() == item.KindInteger {
		return cmp.Compare(a.Int(), b.Int())
	}
	return cmp.Compare(a.Float(), b.Float())
}
