package item

import (
	"github.com/openfga/flwor/pkg/evalerr"
)

// NamespaceBinding maps a prefix to a namespace URI.
type NamespaceBinding struct {
	Prefix string
	URI    string
}

// Node is the capability set consumed from the tree storage layer.
type Node interface {
	Item

	// IsSameNode reports whether other is the same node (identity, not
	// equality of content).
	IsSameNode(other Node) bool

	// CompareDocumentOrder returns a negative number if the node precedes
	// other in document order, zero if they are the same node and a positive
	// number otherwise. Nodes from different trees are ordered consistently
	// but arbitrarily.
	CompareDocumentOrder(other Node) int

	// Parent returns the parent node, or false for a root.
	Parent() (Node, bool)

	// Atomize returns the typed value of the node.
	Atomize() ([]Atomic, error)

	// DeclaredNamespaces returns the namespace bindings declared on this node.
	DeclaredNamespaces() []NamespaceBinding
}

// Navigator is implemented by nodes that support downward navigation.
type Navigator interface {
	Node

	// Name returns the local name of the node, or "" for unnamed nodes.
	Name() string

	// Children returns the child nodes in document order.
	Children() []Node
}

// Atomize returns the atomized form of the sequence: atomic values are kept
// and nodes are replaced by their typed values.
func Atomize(seq Sequence) ([]Atomic, error) {
	out := make([]Atomic, 0, len(seq))
	for _, it := range seq {
		vals, err := AtomizeItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

// AtomizeItem atomizes a single item.
func AtomizeItem(it Item) ([]Atomic, error) {
	switch v := it.(type) {
	case Atomic:
		if v.IsAbsent() {
			return nil, nil
		}
		return []Atomic{v}, nil
	case Node:
		return v.Atomize()
	case nil:
		return nil, nil
	default:
		return nil, evalerr.TypeError("cannot atomize %T", it)
	}
}

// EffectiveBooleanValue computes the effective boolean value of a sequence.
func EffectiveBooleanValue(seq Sequence) (bool, error) {
	if len(seq) == 0 {
		return false, nil
	}
	if _, ok := seq[0].(Node); ok {
		return true, nil
	}
	if len(seq) > 1 {
		return false, evalerr.New(evalerr.CodeEffectiveBooleanValue,
			"effective boolean value is not defined for a sequence of two or more atomic values")
	}
	a, ok := seq[0].(Atomic)
	if !ok {
		return false, evalerr.New(evalerr.CodeEffectiveBooleanValue,
			"effective boolean value is not defined for %T", seq[0])
	}
	switch a.Kind() {
	case KindBoolean:
		return a.Bool(), nil
	case KindString, KindUntypedAtomic:
		return a.StringValue() != "", nil
	case KindInteger:
		return a.Int() != 0, nil
	case KindDouble:
		f := a.Float()
		return f != 0 && !a.IsNaN(), nil
	case KindAbsent:
		return false, nil
	default:
		return false, evalerr.New(evalerr.CodeEffectiveBooleanValue,
			"effective boolean value is not defined for %s", a.Kind())
	}
}
