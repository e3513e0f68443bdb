package sim

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ActiveCloneRadius is how close an agent must be to a gate whose state
// differs from the parent clone's for the active cloning condition to fire.
const ActiveCloneRadius = 6.0

// ErrParentMismatch is returned when a clone is copied in against a clone
// other than its designated parent.
var ErrParentMismatch = errors.New("copy-in against a clone that is not the designated parent")

// Clone is one simulation variant. It owns a pool of private agent copies and
// resolves every other global id through its parent's context.
type Clone struct {
	ID       CloneID
	ParentID CloneID
	Params   GateSchedule

	Pool    *AgentPool
	Context []SlotRef // global id -> authoritative agent
	Owned   []bool    // global id -> this clone holds a private copy

	Walls []ObstacleLine // static
	Gates []ObstacleLine // lifted barriers are replaced by OpenLine
	Grid  *OccupancyGrid

	dim  float64
	view []*Agent // scratch: Context resolved for the current step
}

// CopyInStats counts the agents materialized by one copy-in.
type CopyInStats struct {
	Active  int
	Passive int
}

// Total is the number of agents copied in.
func (s CopyInStats) Total() int { return s.Active + s.Passive }

// NewClone creates a clone for a population of the given size. The pool holds
// at most capacity private copies. Returns ErrInvalidSchedule if params do not
// fit the layout.
func NewClone(id CloneID, params GateSchedule, layout *Layout, population, capacity, maxGateTick int) (*Clone, error) {
	if population < 1 {
		panic(fmt.Sprintf("NewClone: population must be >= 1, got %d", population))
	}
	if err := params.Validate(maxGateTick); err != nil {
		return nil, fmt.Errorf("clone %d: %w", id, err)
	}
	c := &Clone{
		ID:       id,
		ParentID: NoParent,
		Params:   params.Clone(),
		Pool:     NewAgentPool(capacity),
		Context:  make([]SlotRef, population),
		Owned:    make([]bool, population),
		Walls:    append([]ObstacleLine(nil), layout.Walls...),
		Gates:    append([]ObstacleLine(nil), layout.Gates...),
		Grid:     NewOccupancyGrid(layout.Dim),
		dim:      layout.Dim,
		view:     make([]*Agent, population),
	}
	return c, nil
}

// Population returns the number of global ids.
func (c *Clone) Population() int { return len(c.Context) }

// OwnedCount returns the number of private copies currently held.
func (c *Clone) OwnedCount() int { return c.Pool.Live() }

// IsRoot reports whether the clone has no parent.
func (c *Clone) IsRoot() bool { return c.ParentID == NoParent }

// Populate installs the full population into a root clone.
func (c *Clone) Populate(agents []Agent) error {
	if len(agents) != c.Population() {
		return fmt.Errorf("clone %d: populate with %d agents, population is %d", c.ID, len(agents), c.Population())
	}
	for _, a := range agents {
		idx, err := c.Pool.ReserveNextSlot()
		if err != nil {
			return fmt.Errorf("clone %d: populate agent %d: %w", c.ID, a.ContextID, err)
		}
		c.Pool.Place(idx, a)
		c.Context[a.ContextID] = Owned(c.ID, idx)
		c.Owned[a.ContextID] = true
	}
	return nil
}

// AdvanceGates lifts the barrier of every gate scheduled for tick and returns
// how many were lifted.
func (c *Clone) AdvanceGates(tick int) int {
	n := 0
	for i, t := range c.Params {
		if t == tick && !c.Gates[i].IsOpen() {
			c.Gates[i] = OpenLine
			n++
		}
	}
	return n
}

// inheritContext points every id at the parent's view of it, then overlays
// this clone's own copies. Each own copy's origin is refreshed to the parent's
// reference for the same id.
func (c *Clone) inheritContext(parent *Clone) {
	for id, ref := range parent.Context {
		c.Context[id] = ref.inheritedBy()
	}
	for i := 0; i < c.Pool.Live(); i++ {
		a := c.Pool.At(i)
		a.Origin = c.Context[a.ContextID]
		c.Context[a.ContextID] = Owned(c.ID, i)
	}
}

// CopyIn runs the divergence half of the protocol against parent: inherit the
// parent's context, rebuild the occupancy grid from own agents, then copy in
// every inherited agent that meets the active or passive cloning condition.
func (c *Clone) CopyIn(parent *Clone, reg *Registry) (CopyInStats, error) {
	var stats CopyInStats
	if parent.ID != c.ParentID {
		return stats, fmt.Errorf("clone %d: parent %d: %w (designated %d)", c.ID, parent.ID, ErrParentMismatch, c.ParentID)
	}

	c.inheritContext(parent)

	c.Grid.Clear()
	for i := 0; i < c.Pool.Live(); i++ {
		c.Grid.Mark(c.Pool.At(i).Current.Loc)
	}

	for id, ref := range c.Context {
		if c.Owned[id] {
			continue
		}
		src := reg.Resolve(ref)
		active, passive := c.cloningCondition(src, parent)
		if !active && !passive {
			continue
		}
		idx, err := c.Pool.ReserveNextSlot()
		if err != nil {
			return stats, fmt.Errorf("clone %d: copy-in of agent %d: %w", c.ID, id, err)
		}
		var cp Agent
		cp.CopyFrom(src, ref)
		c.Pool.Place(idx, cp)
		c.Context[id] = Owned(c.ID, idx)
		c.Owned[id] = true
		if active {
			stats.Active++
		} else {
			stats.Passive++
		}
	}
	return stats, nil
}

// cloningCondition evaluates the active condition (near a gate whose state
// differs from the parent's) and, failing that, the passive condition (near a
// cell already holding one of this clone's copies).
func (c *Clone) cloningCondition(agent *Agent, parent *Clone) (active, passive bool) {
	loc := agent.Current.Loc
	for i := range c.Gates {
		pg, cg := parent.Gates[i], c.Gates[i]
		if pg.IsOpen() == cg.IsOpen() {
			continue
		}
		gate := pg
		if pg.IsOpen() {
			gate = cg
		}
		if d, _ := gate.DistanceToPoint(loc); d < ActiveCloneRadius {
			return true, false
		}
	}
	return false, c.Grid.AnyWithin(loc, PassiveRadius)
}

// Step runs the transition function for every owned agent against this
// clone's context. Agents are split across up to workers goroutines; each one
// writes only its own pending state.
func (c *Clone) Step(reg *Registry, workers int) {
	for id, ref := range c.Context {
		if ref.Kind == RefOwned {
			c.view[id] = c.Pool.At(ref.Index)
		} else {
			c.view[id] = reg.Resolve(ref)
		}
	}
	env := &StepEnv{Dim: c.dim, Walls: c.Walls, Gates: c.Gates}

	live := c.Pool.Live()
	if workers <= 1 || live < 2*workers {
		for i := 0; i < live; i++ {
			c.Pool.At(i).Step(c.view, env)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (live + workers - 1) / workers
	for start := 0; start < live; start += chunk {
		end := min(start+chunk, live)
		g.Go(func() error {
			for i := start; i < end; i++ {
				c.Pool.At(i).Step(c.view, env)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Prune runs the convergence half of the protocol: every copy whose pending
// position and velocity equal its origin's exactly is released and its id
// reverts to the parent's reference. Returns the number pruned.
func (c *Clone) Prune(reg *Registry) int {
	if c.IsRoot() {
		return 0
	}
	pruned := 0
	for i := 0; i < c.Pool.Live(); i++ {
		a := c.Pool.At(i)
		origin := reg.Resolve(a.Origin)
		if a.Pending.Velocity == origin.Pending.Velocity && a.Pending.Loc == origin.Pending.Loc {
			c.Pool.Release(i)
			c.Owned[a.ContextID] = false
			c.Context[a.ContextID] = a.Origin
			pruned++
		}
	}
	c.Pool.Compact()
	for i := 0; i < c.Pool.Live(); i++ {
		c.Context[c.Pool.At(i).ContextID] = Owned(c.ID, i)
	}
	return pruned
}

// Commit publishes the pending state of every owned agent.
func (c *Clone) Commit() {
	for i := 0; i < c.Pool.Live(); i++ {
		c.Pool.At(i).Commit()
	}
}

// AgentSnapshot is one row of a full-population snapshot.
type AgentSnapshot struct {
	ID       int  `json:"id"`
	Loc      Vec2 `json:"loc"`
	Velocity Vec2 `json:"velocity"`
	Owned    bool `json:"owned"`
}

// Snapshot returns the committed state of every global id as seen by this
// clone, owned or inherited, in id order.
func (c *Clone) Snapshot(reg *Registry) []AgentSnapshot {
	rows := make([]AgentSnapshot, len(c.Context))
	for id, ref := range c.Context {
		a := reg.Resolve(ref)
		rows[id] = AgentSnapshot{
			ID:       id,
			Loc:      a.Current.Loc,
			Velocity: a.Current.Velocity,
			Owned:    ref.Kind == RefOwned,
		}
	}
	return rows
}

// CheckInvariants verifies the ownership bookkeeping of this clone: the owned
// flag matches the context tag, owned references point into the live range at
// the right id, and the pool's present table is contiguous.
func (c *Clone) CheckInvariants() error {
	owned := 0
	for id, ref := range c.Context {
		switch ref.Kind {
		case RefOwned:
			if !c.Owned[id] {
				return fmt.Errorf("clone %d: id %d has owned ref but owned flag unset", c.ID, id)
			}
			if ref.Clone != c.ID {
				return fmt.Errorf("clone %d: id %d owned ref names clone %d", c.ID, id, ref.Clone)
			}
			if ref.Index < 0 || ref.Index >= c.Pool.Live() || c.Pool.At(ref.Index).ContextID != id {
				return fmt.Errorf("clone %d: id %d owned ref %s does not hold that id", c.ID, id, ref)
			}
			owned++
		case RefInherited:
			if c.Owned[id] {
				return fmt.Errorf("clone %d: id %d inherited but owned flag set", c.ID, id)
			}
			if ref.Clone == c.ID {
				return fmt.Errorf("clone %d: id %d inherits from itself", c.ID, id)
			}
		default:
			return fmt.Errorf("clone %d: id %d has no reference", c.ID, id)
		}
	}
	if owned != c.Pool.Live() {
		return fmt.Errorf("clone %d: %d owned ids but %d live slots", c.ID, owned, c.Pool.Live())
	}
	for i := 0; i < c.Pool.Capacity(); i++ {
		if c.Pool.Present(i) != (i < c.Pool.Live()) {
			return fmt.Errorf("clone %d: slot %d present=%v with live range %d", c.ID, i, c.Pool.Present(i), c.Pool.Live())
		}
	}
	return nil
}
