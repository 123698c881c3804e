// Package item defines the data model shared by the iterator algebra and the
// FLWOR engine: items are either atomic values or nodes, and a sequence is an
// ordered list of items.
package item

import (
	"strings"
)

// Item is a member of a sequence. Concrete items are either Atomic values or
// values implementing Node.
type Item interface {
	// StringValue returns the string value of the item.
	StringValue() string
}

// Sequence is a materialized, ordered list of items. A nil or zero-length
// Sequence is the empty sequence.
type Sequence []Item

// Empty is the empty sequence.
var Empty = Sequence(nil)

// Of returns a sequence holding the given items.
func Of(items ...Item) Sequence {
	return Sequence(items)
}

// IsEmpty reports whether the sequence has no items.
func (s Sequence) IsEmpty() bool {
	return len(s) == 0
}

// First returns the first item of the sequence, if any.
func (s Sequence) First() (Item, bool) {
	if len(s) == 0 {
		return nil, false
	}
	return s[0], true
}

// String renders the sequence for diagnostics.
func (s Sequence) String() string {
	parts := make([]string, 0, len(s))
	for _, it := range s {
		parts = append(parts, Describe(it))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Describe renders a single item for diagnostics and error messages.
func Describe(it Item) string {
	switch v := it.(type) {
	case nil:
		return "()"
	case Atomic:
		return v.String()
	case Node:
		return "node(" + v.StringValue() + ")"
	default:
		return it.StringValue()
	}
}
