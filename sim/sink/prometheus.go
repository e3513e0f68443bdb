package sink

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gsim-cloning/evacsim/sim"
)

// PrometheusSink exports divergence samples as Prometheus metrics. Metrics
// are registered on the given registerer so tests and embedders can keep
// them off the default registry.
type PrometheusSink struct {
	tick          prometheus.Gauge
	owned         *prometheus.GaugeVec
	copied        *prometheus.CounterVec
	pruned        *prometheus.CounterVec
	totalDiverged prometheus.Gauge
}

// NewPrometheusSink registers the evacsim metrics on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		tick: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evacsim",
			Name:      "tick",
			Help:      "Last completed simulation tick.",
		}),
		owned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "evacsim",
			Subsystem: "clone",
			Name:      "owned_agents",
			Help:      "Private agent copies held by a clone after the last tick.",
		}, []string{"clone"}),
		copied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evacsim",
			Subsystem: "clone",
			Name:      "copied_in_total",
			Help:      "Agents copied into a clone, by cloning condition.",
		}, []string{"clone", "condition"}),
		pruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evacsim",
			Subsystem: "clone",
			Name:      "pruned_total",
			Help:      "Agent copies pruned after re-converging with their origin.",
		}, []string{"clone"}),
		totalDiverged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "evacsim",
			Name:      "diverged_agents",
			Help:      "Owned agents summed over all non-root clones.",
		}),
	}
	for _, c := range []prometheus.Collector{s.tick, s.owned, s.copied, s.pruned, s.totalDiverged} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RecordDivergence implements sim.DivergenceSink.
func (s *PrometheusSink) RecordDivergence(tick int, samples []sim.DivergenceSample) error {
	s.tick.Set(float64(tick))
	total := 0
	for _, d := range samples {
		id := strconv.Itoa(int(d.Clone))
		s.owned.WithLabelValues(id).Set(float64(d.Owned))
		if d.Parent == sim.NoParent {
			continue
		}
		total += d.Owned
		s.copied.WithLabelValues(id, "active").Add(float64(d.CopiedActive))
		s.copied.WithLabelValues(id, "passive").Add(float64(d.CopiedPassive))
		s.pruned.WithLabelValues(id).Add(float64(d.Pruned))
	}
	s.totalDiverged.Set(float64(total))
	return nil
}
