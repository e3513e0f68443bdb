package sim

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// newTestRegistry registers one clone per schedule over a 64x64 layout and
// gives clone 0 the agents.
func newTestRegistry(t *testing.T, agents []Agent, params ...GateSchedule) *Registry {
	t.Helper()
	layout := NewLayout(64)
	reg := NewRegistry()
	for i, p := range params {
		c, err := NewClone(CloneID(i), p, layout, len(agents), len(agents), 100)
		require.NoError(t, err)
		reg.Add(c)
	}
	require.NoError(t, reg.Clone(0).Populate(agents))
	return reg
}

func agentsAt(locs ...Vec2) []Agent {
	agents := make([]Agent, len(locs))
	for i, loc := range locs {
		agents[i] = NewAgent(i, loc, straightRoute(Vec2{64, 64}))
	}
	return agents
}

func ownedIDs(c *Clone) []int {
	var ids []int
	for id, owned := range c.Owned {
		if owned {
			ids = append(ids, id)
		}
	}
	return ids
}

// gate 3 is the vertical segment x=16, y in [54.4, 57.6] of a 64x64 layout.
func gateThreeScenario(t *testing.T) (*Registry, *Clone) {
	t.Helper()
	agents := agentsAt(
		Vec2{18, 56},   // 0: 2 from gate 3
		Vec2{12, 55},   // 1: 4 from gate 3
		Vec2{30, 56},   // 2: far
		Vec2{5, 5},     // 3: far
		Vec2{16, 63},   // 4: 5.4 from the gate's end point
		Vec2{22.5, 56}, // 5: 6.5 from gate 3, next to agent 0's cell
	)
	rootParams := uniformSchedule(90)
	childParams := rootParams.Clone()
	childParams[3] = 40
	reg := newTestRegistry(t, agents, rootParams, childParams)
	child := reg.Clone(1)
	child.ParentID = 0
	return reg, child
}

func TestClone_CopyIn_ActiveConditionNearDifferingGate(t *testing.T) {
	// GIVEN a child whose only difference is gate 3 lifting at tick 40
	reg, child := gateThreeScenario(t)
	root := reg.Clone(0)
	assert.Equal(t, 0, root.AdvanceGates(40))
	assert.Equal(t, 1, child.AdvanceGates(40))

	// WHEN the child copies in against the root
	stats, err := child.CopyIn(root, reg)
	require.NoError(t, err)

	// THEN only agents within 6 of gate 3 become owned
	assert.Equal(t, []int{0, 1, 4}, ownedIDs(child))
	assert.Equal(t, CopyInStats{Active: 3}, stats)
	for _, id := range []int{2, 3, 5} {
		assert.Equal(t, RefInherited, child.Context[id].Kind, "id %d", id)
		assert.Equal(t, CloneID(0), child.Context[id].Clone, "id %d", id)
	}
	assert.Equal(t, Owned(1, 2), child.Context[4])
	require.NoError(t, reg.CheckOwnership())
}

func TestClone_CopyIn_PassiveConditionNearOwnedAgent(t *testing.T) {
	reg, child := gateThreeScenario(t)
	root := reg.Clone(0)
	root.AdvanceGates(40)
	child.AdvanceGates(40)
	_, err := child.CopyIn(root, reg)
	require.NoError(t, err)

	// WHEN copying in again with owned agents now marked on the grid
	stats, err := child.CopyIn(root, reg)
	require.NoError(t, err)

	// THEN the agent next to an owned one is copied passively
	assert.Equal(t, CopyInStats{Passive: 1}, stats)
	assert.Equal(t, []int{0, 1, 4, 5}, ownedIDs(child))
	assert.Equal(t, Inherited(0, 0), child.Pool.At(0).Origin, "origin refreshed to the parent's slot")
	require.NoError(t, reg.CheckOwnership())
}

func TestClone_Prune_ExactMatchReleased(t *testing.T) {
	// GIVEN three owned copies identical to their origins, one of them nudged
	reg, child := gateThreeScenario(t)
	root := reg.Clone(0)
	root.AdvanceGates(40)
	child.AdvanceGates(40)
	_, err := child.CopyIn(root, reg)
	require.NoError(t, err)
	child.Pool.At(1).Pending.Loc.X += 1e-9 // id 1

	// WHEN pruning
	pruned := child.Prune(reg)

	// THEN the two exact matches are released and compacted away
	assert.Equal(t, 2, pruned)
	assert.Equal(t, 1, child.OwnedCount())
	assert.Equal(t, []int{1}, ownedIDs(child))
	// AND their ids fall back to the root's slots
	assert.Equal(t, Inherited(0, 0), child.Context[0])
	assert.Equal(t, Inherited(0, 4), child.Context[4])
	// AND the survivor is reindexed to its compacted slot
	assert.Equal(t, Owned(1, 0), child.Context[1])
	require.NoError(t, reg.CheckOwnership())
}

func TestClone_StepThenPrune_UnaffectedCopyReleased(t *testing.T) {
	// GIVEN the root and the child both stepped after the child copied in the
	// agents around gate 3
	reg, child := gateThreeScenario(t)
	root := reg.Clone(0)
	root.AdvanceGates(40)
	child.AdvanceGates(40)
	stats, err := child.CopyIn(root, reg)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 4}, ownedIDs(child))
	root.Step(reg, 1)
	child.Step(reg, 1)

	// WHEN pruning against the root's pending state
	pruned := child.Prune(reg)

	// THEN the copies the open gate pushed differently survive
	assert.Equal(t, []int{0, 1}, ownedIDs(child))
	// AND the copy too far from the gate to feel it is released
	assert.Equal(t, stats.Total()-child.OwnedCount(), pruned)
	assert.Equal(t, Inherited(0, 4), child.Context[4])
	for _, id := range []int{0, 1} {
		own := child.Pool.At(child.Context[id].Index)
		origin := root.Pool.At(id)
		assert.NotEqual(t, origin.Pending.Velocity, own.Pending.Velocity, "id %d", id)
	}
	require.NoError(t, reg.CheckOwnership())
}

func TestClone_Prune_RootNeverPrunes(t *testing.T) {
	reg := newTestRegistry(t, agentsAt(Vec2{1, 1}, Vec2{2, 2}), uniformSchedule(5))
	assert.Equal(t, 0, reg.Clone(0).Prune(reg))
	assert.Equal(t, 2, reg.Clone(0).OwnedCount())
}

func TestClone_CopyIn_ParentMismatch(t *testing.T) {
	reg, child := gateThreeScenario(t)
	_, err := child.CopyIn(child, reg)
	assert.ErrorIs(t, err, ErrParentMismatch)
}

func TestClone_CopyIn_PoolExhausted(t *testing.T) {
	// GIVEN a child that can hold only one private copy
	agents := agentsAt(Vec2{18, 56}, Vec2{12, 55})
	layout := NewLayout(64)
	reg := NewRegistry()
	childParams := uniformSchedule(90)
	childParams[3] = 1
	root, err := NewClone(0, uniformSchedule(90), layout, 2, 2, 100)
	require.NoError(t, err)
	child, err := NewClone(1, childParams, layout, 2, 1, 100)
	require.NoError(t, err)
	reg.Add(root)
	reg.Add(child)
	require.NoError(t, root.Populate(agents))
	child.ParentID = 0
	child.AdvanceGates(1)

	// WHEN both agents trigger the active condition
	_, err = child.CopyIn(root, reg)

	// THEN the second copy fails with a capacity error
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestNewClone_RejectsInvalidSchedule(t *testing.T) {
	_, err := NewClone(0, GateSchedule{1, 2}, NewLayout(64), 4, 4, 100)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestClone_AdvanceGates(t *testing.T) {
	params := uniformSchedule(9)
	params[0], params[5] = 2, 2
	c, err := NewClone(0, params, NewLayout(64), 1, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 0, c.AdvanceGates(1))
	assert.Equal(t, 2, c.AdvanceGates(2))
	assert.True(t, c.Gates[0].IsOpen())
	assert.True(t, c.Gates[5].IsOpen())
	assert.False(t, c.Gates[1].IsOpen())
	assert.Equal(t, 0, c.AdvanceGates(2), "already lifted")
}

func TestClone_CheckInvariants_DetectsFlagMismatch(t *testing.T) {
	reg := newTestRegistry(t, agentsAt(Vec2{1, 1}, Vec2{2, 2}), uniformSchedule(5))
	root := reg.Clone(0)
	require.NoError(t, root.CheckInvariants())
	root.Owned[1] = false
	assert.Error(t, root.CheckInvariants())
}

func TestClone_Snapshot_FullPopulation(t *testing.T) {
	reg, child := gateThreeScenario(t)
	root := reg.Clone(0)
	root.AdvanceGates(40)
	child.AdvanceGates(40)
	_, err := child.CopyIn(root, reg)
	require.NoError(t, err)

	rows := child.Snapshot(reg)
	require.Len(t, rows, 6)
	for id, r := range rows {
		assert.Equal(t, id, r.ID)
		assert.Equal(t, child.Owned[id], r.Owned)
	}
	assert.Equal(t, Vec2{30, 56}, rows[2].Loc)
}

func TestClone_Step_WorkerCountDoesNotChangeResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	build := func() *Registry {
		layout := NewLayout(64)
		agents := NewPopulation(layout, 200, rand.New(rand.NewSource(11)))
		reg := NewRegistry()
		c, err := NewClone(0, uniformSchedule(50), layout, 200, 200, 100)
		require.NoError(t, err)
		reg.Add(c)
		require.NoError(t, c.Populate(agents))
		return reg
	}
	serial, parallel := build(), build()

	for tick := 0; tick < 5; tick++ {
		serial.Clone(0).Step(serial, 1)
		serial.Clone(0).Commit()
		parallel.Clone(0).Step(parallel, 4)
		parallel.Clone(0).Commit()
	}

	want := serial.Clone(0).Snapshot(serial)
	got := parallel.Clone(0).Snapshot(parallel)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parallel step diverged from serial step (-serial +parallel):\n%s", diff)
	}
}
