package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/gsim-cloning/evacsim/sim/trace"
)

// Scenario is a fully constructed run: every clone registered, the root
// populated, the hierarchy built and the processing schedule chosen.
type Scenario struct {
	Config    ScenarioConfig
	Layout    *Layout
	Registry  *Registry
	Params    []GateSchedule
	Distances *DistanceMatrix
	Hierarchy *Hierarchy
	Schedule  Schedule
	Root      CloneID
}

// NewScenario builds a Scenario from a validated config. rec receives the
// distance matrix and parent table; nil discards them.
func NewScenario(cfg ScenarioConfig, rec trace.Recorder) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	rng := NewSeedStreams(RunSeed(cfg.Seed))
	layout := NewLayout(cfg.EnvDim)

	var gen ParamGenerator
	if cfg.GateSchedules != nil {
		fixed := make([]GateSchedule, len(cfg.GateSchedules))
		for i, s := range cfg.GateSchedules {
			fixed[i] = GateSchedule(s)
		}
		gen = &FixedGenerator{Schedules: fixed}
	} else {
		gen = &MutatingGenerator{
			RNG:          rng.Params(),
			MaxGateTick:  cfg.MaxGateTick,
			MinMutations: cfg.MinMutations,
			MaxMutations: cfg.MaxMutations,
		}
	}
	params, err := gen.Generate(cfg.Clones)
	if err != nil {
		return nil, fmt.Errorf("generating gate schedules: %w", err)
	}

	reg := NewRegistry()
	for i, p := range params {
		// Every clone may need a private copy of the whole population.
		c, err := NewClone(CloneID(i), p, layout, cfg.Population, cfg.Population, cfg.MaxGateTick)
		if err != nil {
			return nil, err
		}
		reg.Add(c)
	}
	root := CloneID(cfg.Root)
	if err := reg.Clone(root).Populate(NewPopulation(layout, cfg.Population, rng.Population())); err != nil {
		return nil, err
	}

	dm := NewDistanceMatrix(params)
	h := BuildHierarchy(dm, root, rec)
	for _, e := range h.Edges() {
		if e.Weight == 0 {
			logrus.Warnf("clone %d has the same gate schedule as its parent %d; it will never diverge", e.Child, e.Parent)
		}
	}

	var sched Schedule
	switch cfg.Schedule.Kind {
	case ScheduleStar:
		sched = StarSchedule(cfg.Clones, root)
	case ScheduleChain:
		sched = ChainSchedule(cfg.Clones, root)
	case ScheduleExplicit:
		edges := make([]Edge, len(cfg.Schedule.Edges))
		for i, e := range cfg.Schedule.Edges {
			edges[i] = Edge{Parent: CloneID(e.Parent), Child: CloneID(e.Child)}
		}
		sched = ExplicitSchedule(edges)
	default:
		sched = MSTSchedule(h)
	}
	if err := sched.Validate(cfg.Clones, root); err != nil {
		return nil, err
	}

	logrus.Infof("scenario: %d agents, %d clones, env %gx%g, hierarchy cost %d, schedule %s",
		cfg.Population, cfg.Clones, cfg.EnvDim, cfg.EnvDim, h.TotalWeight(), sched.Kind)
	return &Scenario{
		Config:    cfg,
		Layout:    layout,
		Registry:  reg,
		Params:    params,
		Distances: dm,
		Hierarchy: h,
		Schedule:  sched,
		Root:      root,
	}, nil
}

// NewDriver returns a driver over the scenario's clones with the configured
// worker count. Options given later override it.
func (s *Scenario) NewDriver(opts ...DriverOption) (*Driver, error) {
	all := append([]DriverOption{WithWorkers(s.Config.Workers)}, opts...)
	return NewDriver(s.Registry, s.Root, s.Schedule, all...)
}

// NewPopulation places n agents uniformly at random in the layout and gives
// each one a room-to-room route. Agent i gets global id i.
func NewPopulation(layout *Layout, n int, rng *rand.Rand) []Agent {
	agents := make([]Agent, n)
	for i := range agents {
		loc := Vec2{rng.Float64() * layout.Dim, rng.Float64() * layout.Dim}
		agents[i] = NewAgent(i, loc, layout.NewWaypoints(loc, rng))
	}
	return agents
}
