package sim

import (
	"errors"
	"fmt"
	"slices"
)

// ErrPoolExhausted is returned when a copy-in needs a slot and the pool is full.
var ErrPoolExhausted = errors.New("agent pool exhausted")

type poolSlot struct {
	agent   Agent
	present bool
}

// AgentPool is a fixed-capacity slot array owned by one clone. Live agents
// occupy [0, Live()); after Compact every slot in that range is present and
// every slot beyond it is not.
type AgentPool struct {
	slots []poolSlot
	live  int
}

// NewAgentPool creates an empty pool. Panics if capacity < 1.
func NewAgentPool(capacity int) *AgentPool {
	if capacity < 1 {
		panic(fmt.Sprintf("NewAgentPool: capacity must be >= 1, got %d", capacity))
	}
	return &AgentPool{slots: make([]poolSlot, capacity)}
}

// Capacity returns the fixed number of slots.
func (p *AgentPool) Capacity() int { return len(p.slots) }

// Live returns the length of the live range.
func (p *AgentPool) Live() int { return p.live }

// At returns the agent in slot idx. The pointer is valid until the next Compact.
func (p *AgentPool) At(idx int) *Agent { return &p.slots[idx].agent }

// Present reports whether slot idx is logically present.
func (p *AgentPool) Present(idx int) bool { return p.slots[idx].present }

// ReserveNextSlot returns the first index past the live range.
func (p *AgentPool) ReserveNextSlot() (int, error) {
	if p.live >= len(p.slots) {
		return -1, fmt.Errorf("%w: capacity %d", ErrPoolExhausted, len(p.slots))
	}
	return p.live, nil
}

// Place writes agent into a slot obtained from ReserveNextSlot and extends
// the live range over it.
func (p *AgentPool) Place(idx int, agent Agent) {
	if idx != p.live {
		panic(fmt.Sprintf("AgentPool.Place: slot %d is not the next free slot %d", idx, p.live))
	}
	p.slots[idx] = poolSlot{agent: agent, present: true}
	p.live++
}

// Release marks slot idx as no longer present. The slot is reclaimed by the
// next Compact.
func (p *AgentPool) Release(idx int) {
	p.slots[idx].present = false
}

// Compact drops released slots from the live range, keeping the remaining
// agents in their relative order. Calling it again without releases is a no-op.
func (p *AgentPool) Compact() {
	kept := slices.DeleteFunc(p.slots[:p.live], func(s poolSlot) bool { return !s.present })
	p.live = len(kept)
}
