package expr

import (
	"cmp"

	"github.com/openfga/flwor/pkg/item"
)

// testNode is a minimal navigable tree used by the tests in this package.
type testNode struct {
	name     string
	text     string
	order    int
	parent   *testNode
	children []*testNode
}

func newTree(root *testNode) *testNode {
	n := 0
	var number func(p, c *testNode)
	number = func(p, c *testNode) {
		c.parent = p
		c.order = n
		n++
		for _, child := range c.children {
			number(c, child)
		}
	}
	number(nil, root)
	return root
}

func el(name string, children ...*testNode) *testNode {
	return &testNode{name: name, children: children}
}

func leaf(name, text string) *testNode {
	return &testNode{name: name, text: text}
}

func (n *testNode) StringValue() string {
	if len(n.children) == 0 {
		return n.text
	}
	s := ""
	for _, c := range n.children {
		s += c.StringValue()
	}
	return s
}

func (n *testNode) IsSameNode(other item.Node) bool {
	o, ok := other.(*testNode)
	return ok && o == n
}

func (n *testNode) CompareDocumentOrder(other item.Node) int {
	return cmp.Compare(n.order, other.(*testNode).order)
}

func (n *testNode) Parent() (item.Node, bool) {
	if n.parent == nil {
		return nil, false
	}
	return n.parent, true
}

func (n *testNode) Atomize() ([]item.Atomic, error) {
	return []item.Atomic{item.UntypedAtomic(n.StringValue())}, nil
}

func (n *testNode) DeclaredNamespaces() []item.NamespaceBinding { return nil }

func (n *testNode) Name() string { return n.name }

func (n *testNode) Children() []item.Node {
	out := make([]item.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}
