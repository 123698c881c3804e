package expr

import (
	"sync"
)

// Binding is the identity of a declared variable: its name and the frame slot
// holding its value. Two bindings with the same name are different variables.
type Binding struct {
	name string
	slot int
}

func (b *Binding) Name() string {
	return b.name
}

func (b *Binding) Slot() int {
	return b.slot
}

func (b *Binding) String() string {
	return "$" + b.name
}

// SlotManager allocates frame slots to declared variables.
type SlotManager struct {
	mu       sync.Mutex
	bindings []*Binding
}

func NewSlotManager() *SlotManager {
	return &SlotManager{}
}

// Declare allocates a new slot for a variable named name.
func (m *SlotManager) Declare(name string) *Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &Binding{name: name, slot: len(m.bindings)}
	m.bindings = append(m.bindings, b)
	return b
}

// Size returns the number of slots allocated so far, which is the frame size
// needed to evaluate expressions using them.
func (m *SlotManager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bindings)
}

// Lookup returns the most recently declared binding with the given name.
func (m *SlotManager) Lookup(name string) (*Binding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.bindings) - 1; i >= 0; i-- {
		if m.bindings[i].name == name {
			return m.bindings[i], true
		}
	}
	return nil, false
}

// NewContext returns a DynamicContext whose frame fits every slot allocated
// so far.
func (m *SlotManager) NewContext(opts ...ContextOption) *DynamicContext {
	return NewDynamicContext(m.Size(), opts...)
}

// Rebinder drives a deep copy of an expression tree. Variables declared
// inside the copied tree get fresh bindings through Fresh; references to them
// are redirected by Rebind. References to variables declared outside are left
// alone. A nil *Rebinder copies without rebinding anything.
type Rebinder struct {
	slots   *SlotManager
	mapping map[*Binding]*Binding
}

// NewRebinder returns a Rebinder allocating fresh slots from slots.
func NewRebinder(slots *SlotManager) *Rebinder {
	return &Rebinder{slots: slots, mapping: map[*Binding]*Binding{}}
}

// Fresh declares a new binding standing in for b in the copy.
func (r *Rebinder) Fresh(b *Binding) *Binding {
	if r == nil || b == nil {
		return b
	}
	nb := r.slots.Declare(b.name)
	r.mapping[b] = nb
	return nb
}

// Rebind returns the binding that replaces b in the copy.
func (r *Rebinder) Rebind(b *Binding) *Binding {
	if r == nil || b == nil {
		return b
	}
	if nb, ok := r.mapping[b]; ok {
		return nb
	}
	return b
}
