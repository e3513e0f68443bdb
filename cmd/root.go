package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/gsim-cloning/evacsim/sim"
	"github.com/gsim-cloning/evacsim/sim/trace"
)

var (
	// Scenario flags; each overrides the config file only when given.
	configPath   string // YAML scenario file
	seed         int64  // Seed for agent placement and gate schedules
	steps        int    // Ticks to simulate
	numClones    int    // Number of clones
	population   int    // Number of agents
	envDim       float64
	maxGateTick  int    // Gate ticks are drawn from [0, maxGateTick)
	scheduleKind string // mst, star, chain, explicit
	rootClone    int    // Clone that owns the full population
	workers      int    // Goroutines stepping one clone's agents

	// Output flags
	logLevel         string // Log verbosity level
	outDir           string // Directory for trajectories, index and metrics
	trajectoryClones []int  // Clones whose full snapshots are streamed
	snapshotEvery    int    // Keep every Nth tick in trajectories
	indexDB          string // SQLite divergence index file name
	metricsAddr      string // Address serving /metrics while running
	traceLevel       string // none, hierarchy, ticks
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "evacsim",
	Short: "Multi-branch crowd evacuation simulator with copy-on-write clones",
}

// runCmd runs a scenario from a config file and flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all clones of an evacuation scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		res, err := RunScenario(ctx, cfg, RunOptions{MetricsAddr: metricsAddr})
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}
		res.Metrics.Print(os.Stdout)
		if res.Trace != nil {
			s := trace.Summarize(res.Trace)
			logrus.Infof("trace: %d tick records, %d copied, %d pruned, peak owned %d (clone %d)",
				s.TotalTicks, s.TotalCopied, s.TotalPruned, s.PeakOwned, s.PeakClone)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// loadConfig reads the config file if given, then overlays every flag the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (sim.ScenarioConfig, error) {
	cfg := sim.DefaultScenarioConfig()
	if configPath != "" {
		loaded, err := sim.LoadScenarioConfig(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}
	applyFlags(cmd, &cfg)
	return cfg, cfg.Validate()
}

func applyFlags(cmd *cobra.Command, cfg *sim.ScenarioConfig) {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("clones") {
		cfg.Clones = numClones
	}
	if f.Changed("population") {
		cfg.Population = population
	}
	if f.Changed("env-dim") {
		cfg.EnvDim = envDim
	}
	if f.Changed("max-gate-tick") {
		cfg.MaxGateTick = maxGateTick
	}
	if f.Changed("schedule") {
		cfg.Schedule.Kind = scheduleKind
	}
	if f.Changed("root") {
		cfg.Root = rootClone
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("trace") {
		cfg.TraceLevel = traceLevel
	}
	if f.Changed("out-dir") {
		cfg.Output.Dir = outDir
	}
	if f.Changed("trajectory-clones") {
		cfg.Output.Clones = trajectoryClones
	}
	if f.Changed("snapshot-every") {
		cfg.Output.Every = snapshotEvery
	}
	if f.Changed("index-db") {
		cfg.Output.IndexDB = indexDB
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func registerScenarioFlags(c *cobra.Command) {
	d := sim.DefaultScenarioConfig()
	c.Flags().StringVar(&configPath, "config", "", "YAML scenario file")
	c.Flags().Int64Var(&seed, "seed", d.Seed, "Seed for agent placement and gate schedules")
	c.Flags().IntVar(&numClones, "clones", d.Clones, "Number of clones")
	c.Flags().IntVar(&population, "population", d.Population, "Number of agents")
	c.Flags().Float64Var(&envDim, "env-dim", d.EnvDim, "Side length of the square environment")
	c.Flags().IntVar(&maxGateTick, "max-gate-tick", d.MaxGateTick, "Gate ticks are drawn from [0, max-gate-tick)")
	c.Flags().IntVar(&rootClone, "root", d.Root, "Clone that owns the full population")
	c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	registerScenarioFlags(runCmd)
	d := sim.DefaultScenarioConfig()
	runCmd.Flags().IntVar(&steps, "steps", d.Steps, "Ticks to simulate")
	runCmd.Flags().StringVar(&scheduleKind, "schedule", d.Schedule.Kind, "Clone processing order (mst, star, chain, explicit)")
	runCmd.Flags().IntVar(&workers, "workers", d.Workers, "Goroutines stepping one clone's agents")
	runCmd.Flags().StringVar(&traceLevel, "trace", d.TraceLevel, "Trace level (none, hierarchy, ticks)")

	runCmd.Flags().StringVar(&outDir, "out-dir", "", "Directory for trajectories, divergence index and metrics (empty disables)")
	runCmd.Flags().IntSliceVar(&trajectoryClones, "trajectory-clones", nil, "Clones whose full snapshots are written (default: root)")
	runCmd.Flags().IntVar(&snapshotEvery, "snapshot-every", d.Output.Every, "Write every Nth tick to trajectories")
	runCmd.Flags().StringVar(&indexDB, "index-db", "", "SQLite divergence index file name under --out-dir")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")

	registerScenarioFlags(hierarchyCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(hierarchyCmd)
}
