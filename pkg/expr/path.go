package expr

import (
	"context"
	"fmt"
	"strings"

	"github.com/openfga/flwor/pkg/docorder"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/sequence"
)

// Axis is the direction of a path step.
type Axis int

const (
	AxisChild Axis = iota
	AxisDescendant
	AxisParent
	AxisSelf
)

// Step selects nodes along an axis, keeping those whose name matches. The
// names "" and "*" match every node.
type Step struct {
	Axis Axis
	Name string
}

func (s Step) String() string {
	name := s.Name
	if name == "" {
		name = "*"
	}
	switch s.Axis {
	case AxisDescendant:
		return "descendant::" + name
	case AxisParent:
		return "parent::" + name
	case AxisSelf:
		return "self::" + name
	default:
		return name
	}
}

func (s Step) matches(n item.Node) bool {
	if s.Name == "" || s.Name == "*" {
		return true
	}
	nav, ok := n.(item.Navigator)
	return ok && nav.Name() == s.Name
}

func (s Step) apply(n item.Node, out []item.Node) []item.Node {
	switch s.Axis {
	case AxisSelf:
		if s.matches(n) {
			out = append(out, n)
		}
	case AxisParent:
		if p, ok := n.Parent(); ok && s.matches(p) {
			out = append(out, p)
		}
	case AxisChild:
		if nav, ok := n.(item.Navigator); ok {
			for _, c := range nav.Children() {
				if s.matches(c) {
					out = append(out, c)
				}
			}
		}
	case AxisDescendant:
		if nav, ok := n.(item.Navigator); ok {
			for _, c := range nav.Children() {
				if s.matches(c) {
					out = append(out, c)
				}
				out = Step{Axis: AxisDescendant, Name: s.Name}.apply(c, out)
			}
		}
	}
	return out
}

// Path navigates from the nodes selected by Start through each step in turn.
// The result of every step is in document order without duplicates.
type Path struct {
	base
	Start Expression
	Steps []Step
}

var _ Expression = (*Path)(nil)

func NewPath(start Expression, steps ...Step) *Path {
	p := &Path{Start: start, Steps: steps}
	p.self = p
	return p
}

func (p *Path) Iterate(ctx context.Context, dc *DynamicContext) (sequence.Iterator[item.Item], error) {
	start, err := Evaluate(ctx, p.Start, dc)
	if err != nil {
		return nil, err
	}
	nodes := make([]item.Node, 0, len(start))
	for _, it := range start {
		n, ok := it.(item.Node)
		if !ok {
			return nil, evalerr.TypeError("path %s applied to the atomic value %s", p, item.Describe(it))
		}
		nodes = append(nodes, n)
	}

	for _, step := range p.Steps {
		var next []item.Node
		for _, n := range nodes {
			next = step.apply(n, next)
		}
		ordered, err := sequence.Collect(ctx, docorder.FromNodes(next, nil))
		if err != nil {
			return nil, err
		}
		nodes = ordered
	}

	return sequence.Map(sequence.FromSlice(nodes), func(_ context.Context, n item.Node) (item.Item, error) {
		return n, nil
	}), nil
}

func (p *Path) Copy(r *Rebinder) Expression {
	return NewPath(p.Start.Copy(r), append([]Step(nil), p.Steps...)...)
}

func (p *Path) String() string {
	var sb strings.Builder
	sb.WriteString(p.Start.String())
	for _, s := range p.Steps {
		sb.WriteByte('/')
		sb.WriteString(s.String())
	}
	return sb.String()
}

// ParsePath parses the abbreviated path syntax used in pipeline definitions:
// a start of "$name" or ".", followed by steps separated by "/" or "//".
// A step is a name, "*", ".." or ".". resolve maps variable names to
// bindings.
func ParsePath(src string, resolve func(name string) (*Binding, bool)) (*Path, error) {
	rest := strings.TrimSpace(src)
	var start Expression
	switch {
	case strings.HasPrefix(rest, "$"):
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		name := rest[1:end]
		b, ok := resolve(name)
		if !ok {
			return nil, fmt.Errorf("path %q: undeclared variable $%s", src, name)
		}
		start = NewVariableReference(b)
		rest = rest[end:]
	case strings.HasPrefix(rest, "/"):
		return nil, fmt.Errorf("path %q: absolute paths are not supported", src)
	default:
		start = ContextItem{}
		if rest == "." || strings.HasPrefix(rest, "./") {
			rest = rest[1:]
		} else if rest != "" {
			rest = "/" + rest
		}
	}

	var steps []Step
	for rest != "" {
		axis := AxisChild
		switch {
		case strings.HasPrefix(rest, "//"):
			axis = AxisDescendant
			rest = rest[2:]
		case strings.HasPrefix(rest, "/"):
			rest = rest[1:]
		default:
			return nil, fmt.Errorf("path %q: expected '/' before %q", src, rest)
		}
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		name := rest[:end]
		rest = rest[end:]

		switch name {
		case "":
			return nil, fmt.Errorf("path %q: empty step", src)
		case "..":
			if axis == AxisDescendant {
				return nil, fmt.Errorf("path %q: '//..' is not supported", src)
			}
			steps = append(steps, Step{Axis: AxisParent})
		case ".":
			steps = append(steps, Step{Axis: AxisSelf})
		default:
			steps = append(steps, Step{Axis: axis, Name: name})
		}
	}
	return NewPath(start, steps...), nil
}
