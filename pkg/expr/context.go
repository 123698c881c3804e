package expr

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/openfga/flwor/pkg/collation"
	"github.com/openfga/flwor/pkg/evalerr"
	"github.com/openfga/flwor/pkg/item"
	"github.com/openfga/flwor/pkg/logger"
)

var defaultRegistry = sync.OnceValue(func() *collation.Registry {
	return collation.MustNewRegistry()
})

type frame struct {
	slots []item.Sequence
	bound []bool
}

// DynamicContext is the state an expression is evaluated against: a frame of
// variable slots, the context item, and the collations and logger in use.
//
// The frame is mutated in place as a pipeline binds variables. A
// DynamicContext is not safe for concurrent use; use Fork to obtain an
// independent copy.
type DynamicContext struct {
	frame *frame

	contextItem     item.Item
	contextPosition int

	collations *collation.Registry
	logger     logger.Logger
	runID      string
}

// ContextOption configures a DynamicContext.
type ContextOption func(*DynamicContext)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) ContextOption {
	return func(dc *DynamicContext) {
		dc.logger = l
	}
}

// WithCollations sets the registry used to resolve collation URIs.
func WithCollations(r *collation.Registry) ContextOption {
	return func(dc *DynamicContext) {
		dc.collations = r
	}
}

// WithRunID sets the evaluation run ID. By default a new ULID is generated.
func WithRunID(id string) ContextOption {
	return func(dc *DynamicContext) {
		dc.runID = id
	}
}

// WithContextItem sets the initial context item.
func WithContextItem(it item.Item) ContextOption {
	return func(dc *DynamicContext) {
		dc.contextItem = it
		dc.contextPosition = 1
	}
}

// NewDynamicContext returns a context with frameSize unbound slots.
func NewDynamicContext(frameSize int, opts ...ContextOption) *DynamicContext {
	dc := &DynamicContext{
		frame: &frame{
			slots: make([]item.Sequence, frameSize),
			bound: make([]bool, frameSize),
		},
	}
	for _, opt := range opts {
		opt(dc)
	}
	if dc.logger == nil {
		dc.logger = logger.NewNoopLogger()
	}
	if dc.collations == nil {
		dc.collations = defaultRegistry()
	}
	if dc.runID == "" {
		dc.runID = ulid.Make().String()
	}
	return dc
}

// FrameSize returns the number of variable slots.
func (dc *DynamicContext) FrameSize() int {
	return len(dc.frame.slots)
}

// Variable returns the value bound to slot. Reading an unbound or
// out-of-range slot fails with XPDY0002.
func (dc *DynamicContext) Variable(slot int) (item.Sequence, error) {
	if slot < 0 || slot >= len(dc.frame.slots) {
		return nil, evalerr.New(evalerr.CodeUndefinedVariable, "variable slot %d outside frame of size %d", slot, len(dc.frame.slots))
	}
	if !dc.frame.bound[slot] {
		return nil, evalerr.New(evalerr.CodeUndefinedVariable, "variable slot %d is not bound", slot)
	}
	return dc.frame.slots[slot], nil
}

// SetVariable binds slot to value.
func (dc *DynamicContext) SetVariable(slot int, value item.Sequence) error {
	if slot < 0 || slot >= len(dc.frame.slots) {
		return evalerr.New(evalerr.CodeUndefinedVariable, "variable slot %d outside frame of size %d", slot, len(dc.frame.slots))
	}
	dc.frame.slots[slot] = value
	dc.frame.bound[slot] = true
	return nil
}

// Bind is SetVariable addressed by binding.
func (dc *DynamicContext) Bind(b *Binding, value item.Sequence) error {
	return dc.SetVariable(b.Slot(), value)
}

// Lookup is Variable addressed by binding.
func (dc *DynamicContext) Lookup(b *Binding) (item.Sequence, error) {
	v, err := dc.Variable(b.Slot())
	if err != nil {
		return nil, evalerr.Wrap(err, "", b.String())
	}
	return v, nil
}

// ContextItem returns the context item, if one is set.
func (dc *DynamicContext) ContextItem() (item.Item, bool) {
	return dc.contextItem, dc.contextItem != nil
}

// ContextPosition returns the position of the context item.
func (dc *DynamicContext) ContextPosition() int {
	return dc.contextPosition
}

// Focus returns a context with the given context item and position. It
// shares the variable frame with dc.
func (dc *DynamicContext) Focus(it item.Item, position int) *DynamicContext {
	cp := *dc
	cp.contextItem = it
	cp.contextPosition = position
	return &cp
}

// Fork returns a context with a private copy of the variable frame.
func (dc *DynamicContext) Fork() *DynamicContext {
	cp := *dc
	cp.frame = &frame{
		slots: append([]item.Sequence(nil), dc.frame.slots...),
		bound: append([]bool(nil), dc.frame.bound...),
	}
	return &cp
}

// Grow extends the frame to at least size slots.
func (dc *DynamicContext) Grow(size int) {
	if n := size - len(dc.frame.slots); n > 0 {
		dc.frame.slots = append(dc.frame.slots, make([]item.Sequence, n)...)
		dc.frame.bound = append(dc.frame.bound, make([]bool, n)...)
	}
}

// Collation resolves a collation URI; the empty string is the default
// collation.
func (dc *DynamicContext) Collation(uri string) (collation.Collation, error) {
	return dc.collations.Resolve(uri)
}

// Collations returns the collation registry.
func (dc *DynamicContext) Collations() *collation.Registry {
	return dc.collations
}

func (dc *DynamicContext) Logger() logger.Logger {
	return dc.logger
}

func (dc *DynamicContext) RunID() string {
	return dc.runID
}
