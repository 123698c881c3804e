// Package jsontree exposes JSON documents as navigable node trees.
//
// Object members become child nodes named by their key, in document order. A
// member whose value is an array contributes one child per element, each
// named by the member key. Elements of a top-level or nested array are named
// "item".
package jsontree

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/tidwall/gjson"
	"golang.org/x/exp/maps"

	"github.com/openfga/flwor/pkg/expr"
	"github.com/openfga/flwor/pkg/item"
)

// ElementName is the name of nodes holding the elements of an array that is
// not an object member.
const ElementName = "item"

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid json")

// Kind is the JSON type of a node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var treeCounter atomic.Uint64

// member is the value of one object member: a single node, or the element
// nodes of an array.
type member struct {
	nodes []*Node
	array bool
}

// Node is a node of a JSON tree. Nodes are immutable once built.
type Node struct {
	kind   Kind
	name   string
	scalar string
	number item.Atomic

	parent *Node
	tree   uint64
	order  int

	children []*Node
	// members holds the object members keyed by name, in document order.
	members *linkedhashmap.Map
}

var (
	_ item.Navigator = (*Node)(nil)
	_ expr.Nativer   = (*Node)(nil)
	_ json.Marshaler = (*Node)(nil)
)

// Parse parses a JSON document.
func Parse(data []byte) (*Node, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	return build(gjson.ParseBytes(data)), nil
}

// ParseString is Parse for a string.
func ParseString(s string) (*Node, error) {
	return Parse([]byte(s))
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Node {
	n, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseLines parses a stream of JSON documents separated by whitespace, such
// as JSON Lines.
func ParseLines(data []byte) ([]*Node, error) {
	var (
		out []*Node
		err error
		doc int
	)
	gjson.ForEachLine(string(data), func(r gjson.Result) bool {
		doc++
		raw := strings.TrimSpace(r.Raw)
		if raw == "" {
			return true
		}
		if !gjson.Valid(raw) {
			err = fmt.Errorf("%w in document %d", ErrInvalidJSON, doc)
			return false
		}
		out = append(out, build(r))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func build(r gjson.Result) *Node {
	root := convert(r, "")
	number(root, nil, treeCounter.Add(1), new(int))
	return root
}

func convert(r gjson.Result, name string) *Node {
	n := &Node{name: name}
	switch {
	case r.IsObject():
		n.kind = KindObject
		n.members = linkedhashmap.New()
		r.ForEach(func(key, value gjson.Result) bool {
			k := key.String()
			m := member{array: value.IsArray()}
			if m.array {
				for _, el := range value.Array() {
					m.nodes = append(m.nodes, convert(el, k))
				}
			} else {
				m.nodes = []*Node{convert(value, k)}
			}
			// a repeated key keeps its first position and its last value
			n.members.Put(k, m)
			return true
		})
		n.children = flatten(n.members)
	case r.IsArray():
		n.kind = KindArray
		for _, el := range r.Array() {
			n.children = append(n.children, convert(el, ElementName))
		}
	default:
		switch r.Type {
		case gjson.Null:
			n.kind = KindNull
		case gjson.True, gjson.False:
			n.kind = KindBool
			n.scalar = strconv.FormatBool(r.Bool())
		case gjson.Number:
			n.kind = KindNumber
			n.scalar = r.Raw
		default:
			n.kind = KindString
			n.scalar = r.String()
		}
	}
	n.number = numberOf(n)
	return n
}

func flatten(members *linkedhashmap.Map) []*Node {
	var out []*Node
	it := members.Iterator()
	for it.Next() {
		out = append(out, it.Value().(member).nodes...)
	}
	return out
}

func numberOf(n *Node) item.Atomic {
	if n.kind != KindNumber {
		return item.Absent
	}
	if !strings.ContainsAny(n.scalar, ".eE") {
		if i, err := strconv.ParseInt(n.scalar, 10, 64); err == nil {
			return item.Integer(i)
		}
	}
	f, err := strconv.ParseFloat(n.scalar, 64)
	if err != nil {
		return item.Double(math.NaN())
	}
	return item.Double(f)
}

// number assigns parents, tree identity and pre-order positions.
func number(n, parent *Node, tree uint64, next *int) {
	n.parent = parent
	n.tree = tree
	n.order = *next
	*next++
	for _, c := range n.children {
		number(c, n, tree, next)
	}
}

// FromNative builds a tree from a Go value made of maps, slices, strings,
// numbers, booleans and nil. Map members are ordered by key.
func FromNative(v any) (*Node, error) {
	n, err := fromNative(v, "")
	if err != nil {
		return nil, err
	}
	number(n, nil, treeCounter.Add(1), new(int))
	return n, nil
}

// FromMap adapts FromNative to expr.ResultConverter.
func FromMap(v map[string]any) (item.Item, error) {
	return FromNative(v)
}

func fromNative(v any, name string) (*Node, error) {
	n := &Node{name: name}
	switch val := v.(type) {
	case nil:
		n.kind = KindNull
	case bool:
		n.kind = KindBool
		n.scalar = strconv.FormatBool(val)
	case int64:
		n.kind = KindNumber
		n.scalar = strconv.FormatInt(val, 10)
	case int:
		n.kind = KindNumber
		n.scalar = strconv.Itoa(val)
	case float64:
		n.kind = KindNumber
		n.scalar = strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		n.kind = KindString
		n.scalar = val
	case []any:
		n.kind = KindArray
		for _, el := range val {
			c, err := fromNative(el, ElementName)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, c)
		}
	case map[string]any:
		n.kind = KindObject
		n.members = linkedhashmap.New()
		keys := maps.Keys(val)
		slices.Sort(keys)
		for _, k := range keys {
			m := member{}
			if list, ok := val[k].([]any); ok {
				m.array = true
				for _, el := range list {
					c, err := fromNative(el, k)
					if err != nil {
						return nil, err
					}
					m.nodes = append(m.nodes, c)
				}
			} else {
				c, err := fromNative(val[k], k)
				if err != nil {
					return nil, err
				}
				m.nodes = []*Node{c}
			}
			n.members.Put(k, m)
		}
		n.children = flatten(n.members)
	case *Node:
		return fromNative(val.Native(), name)
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
	n.number = numberOf(n)
	return n, nil
}

// Kind returns the JSON type of the node.
func (n *Node) Kind() Kind {
	return n.kind
}

// Name returns the member key the node is stored under, ElementName for
// array elements, or "" for a root.
func (n *Node) Name() string {
	return n.name
}

func (n *Node) Children() []item.Node {
	out := make([]item.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

// Member returns the nodes stored under key, and whether the key exists. An
// array member returns all its elements.
func (n *Node) Member(key string) ([]*Node, bool) {
	if n.members == nil {
		return nil, false
	}
	v, ok := n.members.Get(key)
	if !ok {
		return nil, false
	}
	return v.(member).nodes, true
}

// Keys returns the member keys of an object node in document order.
func (n *Node) Keys() []string {
	if n.members == nil {
		return nil
	}
	keys := make([]string, 0, n.members.Size())
	for _, k := range n.members.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// StringValue returns the scalar text of a leaf, or the concatenated string
// values of the descendants of a container.
func (n *Node) StringValue() string {
	if n.kind != KindObject && n.kind != KindArray {
		return n.scalar
	}
	var sb strings.Builder
	for _, c := range n.children {
		sb.WriteString(c.StringValue())
	}
	return sb.String()
}

func (n *Node) IsSameNode(other item.Node) bool {
	o, ok := other.(*Node)
	return ok && o == n
}

func (n *Node) CompareDocumentOrder(other item.Node) int {
	o, ok := other.(*Node)
	if !ok {
		return -1
	}
	if n.tree != o.tree {
		return cmp.Compare(n.tree, o.tree)
	}
	return cmp.Compare(n.order, o.order)
}

func (n *Node) Parent() (item.Node, bool) {
	if n.parent == nil {
		return nil, false
	}
	return n.parent, true
}

// Atomize returns the typed value of the node: numbers, strings and
// booleans keep their JSON type, null is empty and containers atomize to
// their untyped string value.
func (n *Node) Atomize() ([]item.Atomic, error) {
	switch n.kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return []item.Atomic{item.Boolean(n.scalar == "true")}, nil
	case KindNumber:
		return []item.Atomic{n.number}, nil
	case KindString:
		return []item.Atomic{item.String(n.scalar)}, nil
	default:
		return []item.Atomic{item.UntypedAtomic(n.StringValue())}, nil
	}
}

func (n *Node) DeclaredNamespaces() []item.NamespaceBinding {
	return nil
}

// Native returns the node as plain Go values.
func (n *Node) Native() any {
	switch n.kind {
	case KindNull:
		return nil
	case KindBool:
		return n.scalar == "true"
	case KindNumber:
		return n.number.Native()
	case KindString:
		return n.scalar
	case KindArray:
		out := make([]any, len(n.children))
		for i, c := range n.children {
			out[i] = c.Native()
		}
		return out
	default:
		out := make(map[string]any, n.members.Size())
		it := n.members.Iterator()
		for it.Next() {
			m := it.Value().(member)
			if m.array {
				list := make([]any, len(m.nodes))
				for i, c := range m.nodes {
					list[i] = c.Native()
				}
				out[it.Key().(string)] = list
			} else {
				out[it.Key().(string)] = m.nodes[0].Native()
			}
		}
		return out
	}
}

// MarshalJSON encodes the node with object members in document order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool, KindNumber:
		buf.WriteString(n.scalar)
	case KindString:
		b, err := json.Marshal(n.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, c := range n.children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := c.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		buf.WriteByte('{')
		it := n.members.Iterator()
		first := true
		for it.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := json.Marshal(it.Key().(string))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			m := it.Value().(member)
			if m.array {
				buf.WriteByte('[')
			}
			for i, c := range m.nodes {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := c.encode(buf); err != nil {
					return err
				}
			}
			if m.array {
				buf.WriteByte(']')
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func (n *Node) String() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}
