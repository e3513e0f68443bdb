package sink

import (
	"errors"

	"github.com/gsim-cloning/evacsim/sim"
)

// Divergence fans one divergence stream out to several sinks. Every sink sees
// every tick; errors are joined.
type Divergence []sim.DivergenceSink

// RecordDivergence implements sim.DivergenceSink.
func (fs Divergence) RecordDivergence(tick int, samples []sim.DivergenceSample) error {
	var errs []error
	for _, s := range fs {
		if err := s.RecordDivergence(tick, samples); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
