package sink

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsim-cloning/evacsim/sim"
)

func TestPrometheusSink_RecordDivergence(t *testing.T) {
	// GIVEN a sink on a private registry
	reg := prometheus.NewRegistry()
	ps, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	// WHEN two ticks are recorded
	require.NoError(t, ps.RecordDivergence(1, []sim.DivergenceSample{
		{Clone: 0, Parent: sim.NoParent, Owned: 50},
		{Clone: 1, Parent: 0, Owned: 4, CopiedActive: 3, CopiedPassive: 1},
	}))
	require.NoError(t, ps.RecordDivergence(2, []sim.DivergenceSample{
		{Clone: 0, Parent: sim.NoParent, Owned: 50},
		{Clone: 1, Parent: 0, Owned: 2, CopiedActive: 1, Pruned: 3},
	}))

	// THEN gauges hold the last tick and counters accumulate
	assert.Equal(t, 2.0, testutil.ToFloat64(ps.tick))
	assert.Equal(t, 2.0, testutil.ToFloat64(ps.owned.WithLabelValues("1")))
	assert.Equal(t, 50.0, testutil.ToFloat64(ps.owned.WithLabelValues("0")))
	assert.Equal(t, 4.0, testutil.ToFloat64(ps.copied.WithLabelValues("1", "active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ps.copied.WithLabelValues("1", "passive")))
	assert.Equal(t, 3.0, testutil.ToFloat64(ps.pruned.WithLabelValues("1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(ps.totalDiverged))
}

func TestPrometheusSink_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	assert.Error(t, err)
}

type failingSink struct{}

func (failingSink) RecordDivergence(int, []sim.DivergenceSample) error { return errors.New("boom") }

type tickRecorder struct {
	ticks []int
	owned map[sim.CloneID]int
}

func (r *tickRecorder) RecordDivergence(tick int, samples []sim.DivergenceSample) error {
	r.ticks = append(r.ticks, tick)
	if r.owned == nil {
		r.owned = make(map[sim.CloneID]int)
	}
	for _, d := range samples {
		r.owned[d.Clone] = d.Owned
	}
	return nil
}

func TestDivergenceFanout(t *testing.T) {
	a, b := &tickRecorder{}, &tickRecorder{}
	fan := Divergence{a, failingSink{}, b}

	err := fan.RecordDivergence(1, []sim.DivergenceSample{{Clone: 0, Owned: 3}, {Clone: 1, Owned: 1}})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int{1}, a.ticks)
	assert.Equal(t, 1, b.owned[1], "later sinks still run")
}
