package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gsim-cloning/evacsim/sim/trace"
)

// ScenarioConfig is the YAML description of one cloning run.
// Zero values are replaced by DefaultScenarioConfig before validation.
type ScenarioConfig struct {
	Seed         int64   `yaml:"seed"`
	EnvDim       float64 `yaml:"env_dim"`
	Population   int     `yaml:"population"`
	Clones       int     `yaml:"clones"`
	Steps        int     `yaml:"steps"`
	MaxGateTick  int     `yaml:"max_gate_tick"`
	MinMutations int     `yaml:"min_mutations"`
	MaxMutations int     `yaml:"max_mutations"`
	Root         int     `yaml:"root"`
	Workers      int     `yaml:"workers"`
	TraceLevel   string  `yaml:"trace_level"`

	// GateSchedules, when set, replaces the mutating generator: one schedule
	// per clone, NumGates ticks each.
	GateSchedules [][]int `yaml:"gate_schedules,omitempty"`

	Schedule ScheduleConfig `yaml:"schedule"`
	Output   OutputConfig   `yaml:"output"`
}

// ScheduleConfig selects the per-tick clone processing order.
type ScheduleConfig struct {
	Kind  string       `yaml:"kind"`            // mst (default), star, chain, explicit
	Edges []EdgeConfig `yaml:"edges,omitempty"` // explicit only, in processing order
}

// EdgeConfig is one parent/child pair of an explicit schedule.
type EdgeConfig struct {
	Parent int `yaml:"parent"`
	Child  int `yaml:"child"`
}

// OutputConfig controls where run artifacts are written. An empty Dir
// disables file output.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Clones  []int  `yaml:"clones,omitempty"` // clones whose full snapshots are streamed
	IndexDB string `yaml:"index_db"`         // SQLite divergence index, relative to Dir
	Every   int    `yaml:"every"`            // snapshot every N ticks
}

// DefaultScenarioConfig returns the reference scenario: 512 agents in a 64x64
// four-by-four room grid, 32 clones, 500 ticks.
func DefaultScenarioConfig() ScenarioConfig {
	return ScenarioConfig{
		Seed:         0,
		EnvDim:       64,
		Population:   512,
		Clones:       32,
		Steps:        500,
		MaxGateTick:  500,
		MinMutations: 1,
		MaxMutations: 4,
		Root:         0,
		Workers:      1,
		TraceLevel:   string(trace.TraceLevelNone),
		Schedule:     ScheduleConfig{Kind: ScheduleMST},
		Output:       OutputConfig{Every: 1},
	}
}

// LoadScenarioConfig reads a YAML scenario from path. Unknown keys are
// rejected. Fields absent from the file keep their default values.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario config: %w", err)
	}
	return ParseScenarioConfig(data)
}

// ParseScenarioConfig decodes a YAML scenario over the defaults.
func ParseScenarioConfig(data []byte) (*ScenarioConfig, error) {
	cfg := DefaultScenarioConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing scenario config: %w", err)
	}
	return &cfg, nil
}

// Validate checks sizes, ranges and names.
func (c *ScenarioConfig) Validate() error {
	if c.EnvDim <= 0 {
		return fmt.Errorf("env_dim must be > 0, got %g", c.EnvDim)
	}
	if c.Population < 1 {
		return fmt.Errorf("population must be >= 1, got %d", c.Population)
	}
	if c.Clones < 1 {
		return fmt.Errorf("clones must be >= 1, got %d", c.Clones)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", c.Steps)
	}
	if c.MaxGateTick < 1 {
		return fmt.Errorf("max_gate_tick must be >= 1, got %d", c.MaxGateTick)
	}
	if c.MinMutations < 0 || c.MaxMutations < c.MinMutations {
		return fmt.Errorf("mutation range [%d, %d] is invalid", c.MinMutations, c.MaxMutations)
	}
	if c.Root < 0 || c.Root >= c.Clones {
		return fmt.Errorf("root %d outside [0, %d)", c.Root, c.Clones)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace_level %q", c.TraceLevel)
	}
	if !ValidScheduleKinds[c.Schedule.Kind] {
		return fmt.Errorf("unknown schedule kind %q", c.Schedule.Kind)
	}
	if c.Schedule.Kind == ScheduleExplicit && len(c.Schedule.Edges) != c.Clones-1 {
		return fmt.Errorf("explicit schedule needs %d edges, got %d", c.Clones-1, len(c.Schedule.Edges))
	}
	if c.Schedule.Kind != ScheduleExplicit && len(c.Schedule.Edges) > 0 {
		return fmt.Errorf("schedule edges are only allowed with kind %q", ScheduleExplicit)
	}
	if c.GateSchedules != nil && len(c.GateSchedules) != c.Clones {
		return fmt.Errorf("gate_schedules has %d entries for %d clones", len(c.GateSchedules), c.Clones)
	}
	for _, id := range c.Output.Clones {
		if id < 0 || id >= c.Clones {
			return fmt.Errorf("output clone %d outside [0, %d)", id, c.Clones)
		}
	}
	if c.Output.Every < 1 {
		return fmt.Errorf("output.every must be >= 1, got %d", c.Output.Every)
	}
	if c.Output.IndexDB != "" && c.Output.Dir == "" {
		return fmt.Errorf("output.index_db %q requires output.dir", c.Output.IndexDB)
	}
	return nil
}
