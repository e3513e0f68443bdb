package sim

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidSchedule is returned when a clone's gate schedule has the wrong
// length or a tick outside [0, maxGateTick).
var ErrInvalidSchedule = errors.New("invalid gate schedule")

// GateSchedule holds, per gate, the tick at which that gate's barrier is lifted.
// It is the parameter vector that distinguishes one clone from another.
type GateSchedule []int

// Validate checks length and tick range.
func (s GateSchedule) Validate(maxGateTick int) error {
	if len(s) != NumGates {
		return fmt.Errorf("%w: %d entries, want %d", ErrInvalidSchedule, len(s), NumGates)
	}
	for i, t := range s {
		if t < 0 || t >= maxGateTick {
			return fmt.Errorf("%w: gate %d tick %d outside [0, %d)", ErrInvalidSchedule, i, t, maxGateTick)
		}
	}
	return nil
}

// Diff counts the gates whose ticks differ between s and o.
func (s GateSchedule) Diff(o GateSchedule) int {
	n := 0
	for i := range s {
		if i >= len(o) || s[i] != o[i] {
			n++
		}
	}
	return n + max(0, len(o)-len(s))
}

// Clone returns an independent copy.
func (s GateSchedule) Clone() GateSchedule {
	return append(GateSchedule(nil), s...)
}

// ParamGenerator produces one gate schedule per clone.
type ParamGenerator interface {
	Generate(numClones int) ([]GateSchedule, error)
}

// MutatingGenerator draws a base schedule uniformly in [0, MaxGateTick) and
// derives every clone from it by re-drawing between MinMutations and
// MaxMutations randomly chosen gates.
type MutatingGenerator struct {
	RNG          *rand.Rand
	MaxGateTick  int
	MinMutations int
	MaxMutations int
}

// Generate implements ParamGenerator.
func (g *MutatingGenerator) Generate(numClones int) ([]GateSchedule, error) {
	if g.MaxGateTick < 1 {
		return nil, fmt.Errorf("max gate tick must be >= 1, got %d", g.MaxGateTick)
	}
	if g.MinMutations < 0 || g.MaxMutations < g.MinMutations {
		return nil, fmt.Errorf("mutation range [%d, %d] is invalid", g.MinMutations, g.MaxMutations)
	}
	base := make(GateSchedule, NumGates)
	for i := range base {
		base[i] = g.RNG.Intn(g.MaxGateTick)
	}
	out := make([]GateSchedule, numClones)
	for c := range out {
		s := base.Clone()
		n := g.MinMutations + g.RNG.Intn(g.MaxMutations-g.MinMutations+1)
		for i := 0; i < n; i++ {
			s[g.RNG.Intn(NumGates)] = g.RNG.Intn(g.MaxGateTick)
		}
		out[c] = s
	}
	return out, nil
}

// FixedGenerator returns the schedules it was given, one per clone.
type FixedGenerator struct {
	Schedules []GateSchedule
}

// Generate implements ParamGenerator.
func (g *FixedGenerator) Generate(numClones int) ([]GateSchedule, error) {
	if len(g.Schedules) != numClones {
		return nil, fmt.Errorf("%w: %d schedules given for %d clones", ErrInvalidSchedule, len(g.Schedules), numClones)
	}
	out := make([]GateSchedule, numClones)
	for i, s := range g.Schedules {
		out[i] = s.Clone()
	}
	return out, nil
}
