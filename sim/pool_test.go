package sim

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillPool(t *testing.T, p *AgentPool, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		idx, err := p.ReserveNextSlot()
		require.NoError(t, err)
		p.Place(idx, NewAgent(i, Vec2{float64(i), 0}, [NumGoals]Vec2{}))
	}
}

func liveIDs(p *AgentPool) []int {
	ids := make([]int, p.Live())
	for i := range ids {
		ids[i] = p.At(i).ContextID
	}
	return ids
}

func assertCompacted(t *testing.T, p *AgentPool) {
	t.Helper()
	for i := 0; i < p.Capacity(); i++ {
		assert.Equal(t, i < p.Live(), p.Present(i), "slot %d with live range %d", i, p.Live())
	}
}

func TestAgentPool_ReserveAndPlace(t *testing.T) {
	p := NewAgentPool(3)
	fillPool(t, p, 3)
	assert.Equal(t, 3, p.Live())

	_, err := p.ReserveNextSlot()
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestAgentPool_CompactKeepsOrder(t *testing.T) {
	// GIVEN a pool with five agents
	p := NewAgentPool(8)
	fillPool(t, p, 5)

	// WHEN slots 1 and 3 are released and the pool compacted
	p.Release(1)
	p.Release(3)
	p.Compact()

	// THEN survivors keep their relative order in the live range
	assert.Equal(t, []int{0, 2, 4}, liveIDs(p))
	assertCompacted(t, p)
}

func TestAgentPool_CompactIdempotent(t *testing.T) {
	p := NewAgentPool(6)
	fillPool(t, p, 6)
	p.Release(0)
	p.Release(5)
	p.Compact()
	once := liveIDs(p)

	p.Compact()
	if diff := cmp.Diff(once, liveIDs(p)); diff != "" {
		t.Errorf("second compaction changed the live range (-once +twice):\n%s", diff)
	}
	assertCompacted(t, p)
}

func TestAgentPool_ReleaseAllThenReuse(t *testing.T) {
	p := NewAgentPool(2)
	fillPool(t, p, 2)
	p.Release(0)
	p.Release(1)
	p.Compact()
	assert.Equal(t, 0, p.Live())
	assertCompacted(t, p)

	idx, err := p.ReserveNextSlot()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestAgentPool_PlaceOutOfOrderPanics(t *testing.T) {
	p := NewAgentPool(4)
	assert.Panics(t, func() { p.Place(2, Agent{}) })
	assert.Panics(t, func() { NewAgentPool(0) })
}
