package sim

import "fmt"

// CloneID identifies a clone within one run. IDs are dense from 0.
type CloneID int

// NoParent marks the root clone's parent.
const NoParent CloneID = -1

// RefKind tags a context entry with its ownership.
type RefKind uint8

const (
	RefNone      RefKind = iota // unset; never valid after initialization
	RefOwned                    // the clone holding the context owns the agent
	RefInherited                // the agent lives in an ancestor's pool
)

func (k RefKind) String() string {
	switch k {
	case RefOwned:
		return "owned"
	case RefInherited:
		return "inherited"
	default:
		return "none"
	}
}

// SlotRef locates an agent instance: a pool slot of a given clone.
type SlotRef struct {
	Kind  RefKind
	Clone CloneID
	Index int
}

// Owned returns a reference to slot idx of clone c, seen from c itself.
func Owned(c CloneID, idx int) SlotRef {
	return SlotRef{Kind: RefOwned, Clone: c, Index: idx}
}

// Inherited returns a reference to slot idx of ancestor clone c.
func Inherited(c CloneID, idx int) SlotRef {
	return SlotRef{Kind: RefInherited, Clone: c, Index: idx}
}

// inheritedBy converts a reference held by the parent into the form the child
// stores: whatever the parent owns becomes inherited, inherited stays as is.
func (r SlotRef) inheritedBy() SlotRef {
	if r.Kind == RefOwned {
		r.Kind = RefInherited
	}
	return r
}

func (r SlotRef) String() string {
	return fmt.Sprintf("%s(clone=%d,slot=%d)", r.Kind, r.Clone, r.Index)
}

// Registry owns every clone of a run and resolves SlotRefs to agents.
// Agent lifetime is tied to the registry, never to a held pointer.
type Registry struct {
	clones []*Clone
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clones: make([]*Clone, 0)}
}

// Add registers c. Clones must be added in ID order.
func (r *Registry) Add(c *Clone) {
	if int(c.ID) != len(r.clones) {
		panic(fmt.Sprintf("Registry.Add: clone %d added out of order (next id %d)", c.ID, len(r.clones)))
	}
	r.clones = append(r.clones, c)
}

// Len returns the number of registered clones.
func (r *Registry) Len() int { return len(r.clones) }

// Clone returns the clone with the given ID, or nil when unknown.
func (r *Registry) Clone(id CloneID) *Clone {
	if id < 0 || int(id) >= len(r.clones) {
		return nil
	}
	return r.clones[id]
}

// Clones returns all registered clones in ID order.
func (r *Registry) Clones() []*Clone { return r.clones }

// Resolve returns the agent ref points at. Panics on a dangling reference:
// that is a protocol bug, not a runtime condition.
func (r *Registry) Resolve(ref SlotRef) *Agent {
	c := r.Clone(ref.Clone)
	if ref.Kind == RefNone || c == nil {
		panic(fmt.Sprintf("Registry.Resolve: dangling reference %s", ref))
	}
	if ref.Index < 0 || ref.Index >= c.Pool.Live() || !c.Pool.Present(ref.Index) {
		panic(fmt.Sprintf("Registry.Resolve: %s outside live range %d", ref, c.Pool.Live()))
	}
	return c.Pool.At(ref.Index)
}

// CheckOwnership verifies every clone's invariants and that each inherited
// reference points at an ancestor's copy of the same id. Every agent instance
// is then owned by exactly the clone whose pool holds it.
func (r *Registry) CheckOwnership() error {
	for _, c := range r.clones {
		if err := c.CheckInvariants(); err != nil {
			return err
		}
		for id, ref := range c.Context {
			if ref.Kind != RefInherited {
				continue
			}
			if !r.isAncestor(ref.Clone, c) {
				return fmt.Errorf("clone %d: id %d inherits from non-ancestor clone %d", c.ID, id, ref.Clone)
			}
			if got := r.Resolve(ref).ContextID; got != id {
				return fmt.Errorf("clone %d: id %d resolves to agent %d", c.ID, id, got)
			}
		}
	}
	return nil
}

func (r *Registry) isAncestor(anc CloneID, c *Clone) bool {
	for p := c.ParentID; p != NoParent; {
		if p == anc {
			return true
		}
		pc := r.Clone(p)
		if pc == nil {
			return false
		}
		p = pc.ParentID
	}
	return false
}
