package sim

import (
	"hash/fnv"
	"math/rand"
)

// RunSeed identifies a reproducible run: the same seed and configuration give
// the same agent placement, the same gate schedules and therefore the same
// trajectories in every clone.
type RunSeed int64

// Named random streams.
const (
	// StreamPopulation places agents and draws their routes. It is seeded with
	// the run seed itself.
	StreamPopulation = "population"

	// StreamParams draws the base gate schedule and every clone's mutations.
	StreamParams = "params"
)

// SeedStreams hands out one deterministic generator per named stream, so
// draws on one stream never shift another. Adding a population agent does not
// change the gate schedules and vice versa.
//
// Not safe for concurrent use; scenarios are built on one goroutine.
type SeedStreams struct {
	seed    RunSeed
	streams map[string]*rand.Rand
}

// NewSeedStreams creates the streams of a run.
func NewSeedStreams(seed RunSeed) *SeedStreams {
	return &SeedStreams{seed: seed, streams: make(map[string]*rand.Rand)}
}

// Seed returns the run seed.
func (s *SeedStreams) Seed() RunSeed { return s.seed }

// Stream returns the generator for name, creating it on first use. Repeated
// calls return the same instance.
func (s *SeedStreams) Stream(name string) *rand.Rand {
	if r, ok := s.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(s.derive(name)))
	s.streams[name] = r
	return r
}

// Population is Stream(StreamPopulation).
func (s *SeedStreams) Population() *rand.Rand { return s.Stream(StreamPopulation) }

// Params is Stream(StreamParams).
func (s *SeedStreams) Params() *rand.Rand { return s.Stream(StreamParams) }

// derive maps a stream name to its source seed: the run seed for the
// population stream, the run seed XOR the FNV-1a hash of the name otherwise.
func (s *SeedStreams) derive(name string) int64 {
	if name == StreamPopulation {
		return int64(s.seed)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(s.seed) ^ int64(h.Sum64())
}
