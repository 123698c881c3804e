package item

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the primitive type of an atomic value.
type Kind int

const (
	// KindAbsent marks the absence of a value. It is the kind of the zero Atomic
	// and stands for an empty sort or grouping key.
	KindAbsent Kind = iota
	KindString
	KindUntypedAtomic
	KindBoolean
	KindInteger
	KindDouble
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "empty-sequence()"
	case KindString:
		return "xs:string"
	case KindUntypedAtomic:
		return "xs:untypedAtomic"
	case KindBoolean:
		return "xs:boolean"
	case KindInteger:
		return "xs:integer"
	case KindDouble:
		return "xs:double"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsNumeric reports whether values of this kind are numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindDouble
}

// IsStringLike reports whether values of this kind compare as strings.
func (k Kind) IsStringLike() bool {
	return k == KindString || k == KindUntypedAtomic
}

// Atomic is an immutable atomic value. The zero value is the Absent marker.
type Atomic struct {
	kind Kind
	str  string
	num  int64
	dbl  float64
	b    bool
}

// Absent is the marker used where a key evaluates to the empty sequence.
var Absent = Atomic{}

// String returns an xs:string value.
func String(s string) Atomic {
	return Atomic{kind: KindString, str: s}
}

// UntypedAtomic returns an xs:untypedAtomic value, as produced by atomizing a node.
func UntypedAtomic(s string) Atomic {
	return Atomic{kind: KindUntypedAtomic, str: s}
}

// Boolean returns an xs:boolean value.
func Boolean(b bool) Atomic {
	return Atomic{kind: KindBoolean, b: b}
}

// Integer returns an xs:integer value.
func Integer(i int64) Atomic {
	return Atomic{kind: KindInteger, num: i}
}

// Double returns an xs:double value.
func Double(f float64) Atomic {
	return Atomic{kind: KindDouble, dbl: f}
}

// Kind returns the primitive type of the value.
func (a Atomic) Kind() Kind {
	return a.kind
}

// IsAbsent reports whether a is the Absent marker.
func (a Atomic) IsAbsent() bool {
	return a.kind == KindAbsent
}

// IsNaN reports whether a is a double NaN.
func (a Atomic) IsNaN() bool {
	return a.kind == KindDouble && math.IsNaN(a.dbl)
}

// Bool returns the boolean content of a boolean value.
func (a Atomic) Bool() bool {
	return a.b
}

// Int returns the integer content of an integer value.
func (a Atomic) Int() int64 {
	return a.num
}

// Float returns the numeric value of a as a float64. Non-numeric values
// yield NaN.
func (a Atomic) Float() float64 {
	switch a.kind {
	case KindInteger:
		return float64(a.num)
	case KindDouble:
		return a.dbl
	default:
		return math.NaN()
	}
}

// StringValue implements Item.
func (a Atomic) StringValue() string {
	switch a.kind {
	case KindString, KindUntypedAtomic:
		return a.str
	case KindBoolean:
		return strconv.FormatBool(a.b)
	case KindInteger:
		return strconv.FormatInt(a.num, 10)
	case KindDouble:
		return formatDouble(a.dbl)
	default:
		return ""
	}
}

// String renders the value with its type for diagnostics.
func (a Atomic) String() string {
	switch a.kind {
	case KindAbsent:
		return "()"
	case KindString:
		return strconv.Quote(a.str)
	default:
		return a.kind.String() + "(" + a.StringValue() + ")"
	}
}

// Native returns the Go value held by a: string, bool, int64, float64 or nil.
func (a Atomic) Native() any {
	switch a.kind {
	case KindString, KindUntypedAtomic:
		return a.str
	case KindBoolean:
		return a.b
	case KindInteger:
		return a.num
	case KindDouble:
		return a.dbl
	default:
		return nil
	}
}

// ToDouble converts a to xs:double following the casting rules used by
// numeric sort keys. Strings that are not numbers become NaN.
func (a Atomic) ToDouble() Atomic {
	switch a.kind {
	case KindDouble:
		return a
	case KindInteger:
		return Double(float64(a.num))
	case KindBoolean:
		if a.b {
			return Double(1)
		}
		return Double(0)
	case KindString, KindUntypedAtomic:
		f, err := strconv.ParseFloat(trimSpace(a.str), 64)
		if err != nil {
			return Double(math.NaN())
		}
		return Double(f)
	default:
		return Double(math.NaN())
	}
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isXMLSpace(s[start]) {
		start++
	}
	for end > start && isXMLSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isXMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
