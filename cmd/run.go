package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	sim "github.com/gsim-cloning/evacsim/sim"
	"github.com/gsim-cloning/evacsim/sim/sink"
	"github.com/gsim-cloning/evacsim/sim/trace"
)

// RunOptions holds settings that are not part of the scenario itself.
type RunOptions struct {
	MetricsAddr string // empty disables the /metrics endpoint
}

// RunResult is what a finished run leaves behind.
type RunResult struct {
	Metrics *sim.Metrics
	Trace   *trace.SimulationTrace // nil when tracing is off
	RunID   string                 // set when a divergence index was written
}

// RunScenario builds the scenario, wires the configured sinks and runs it to
// completion or until ctx is cancelled.
func RunScenario(ctx context.Context, cfg sim.ScenarioConfig, opts RunOptions) (res *RunResult, err error) {
	res = &RunResult{}
	var rec trace.Recorder = trace.Nop{}
	if cfg.TraceLevel != "" && trace.TraceLevel(cfg.TraceLevel) != trace.TraceLevelNone {
		res.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)})
		rec = res.Trace
	}

	sc, err := sim.NewScenario(cfg, rec)
	if err != nil {
		return nil, err
	}

	driverOpts := []sim.DriverOption{sim.WithRecorder(rec)}
	var divergence sink.Divergence

	if cfg.Output.Dir != "" {
		clones := make([]sim.CloneID, len(cfg.Output.Clones))
		for i, id := range cfg.Output.Clones {
			clones[i] = sim.CloneID(id)
		}
		tw := sink.NewTrajectoryWriter(cfg.Output.Dir, cfg.Output.Every)
		defer func() {
			if cerr := tw.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		driverOpts = append(driverOpts, sim.WithSnapshotSink(tw, clones...))

		if cfg.Output.IndexDB != "" {
			idx, oerr := sink.OpenSQLite(filepath.Join(cfg.Output.Dir, cfg.Output.IndexDB), sink.RunInfo{
				Seed:       cfg.Seed,
				Population: cfg.Population,
				Clones:     cfg.Clones,
				Schedule:   sc.Schedule.Kind,
				Root:       cfg.Root,
			})
			if oerr != nil {
				return nil, fmt.Errorf("open divergence index: %w", oerr)
			}
			defer func() {
				if cerr := idx.Close(); cerr != nil && err == nil {
					err = fmt.Errorf("close divergence index: %w", cerr)
				}
			}()
			if err := idx.RecordClones(sc.Schedule, sc.Hierarchy, sc.Params); err != nil {
				return nil, fmt.Errorf("record clones: %w", err)
			}
			res.RunID = idx.RunID()
			divergence = append(divergence, idx)
		}
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		ps, err := sink.NewPrometheusSink(reg)
		if err != nil {
			return nil, err
		}
		divergence = append(divergence, ps)
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Warnf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logrus.Infof("serving metrics on %s/metrics", opts.MetricsAddr)
	}
	if len(divergence) > 0 {
		driverOpts = append(driverOpts, sim.WithDivergenceSink(divergence))
	}

	d, err := sc.NewDriver(driverOpts...)
	if err != nil {
		return nil, err
	}
	if err := d.Run(ctx, cfg.Steps); err != nil {
		return nil, err
	}
	res.Metrics = d.Metrics()

	if cfg.Output.Dir != "" {
		if err := res.Metrics.SaveResults(res.RunID, filepath.Join(cfg.Output.Dir, "metrics.json")); err != nil {
			return nil, err
		}
		if err := res.Metrics.SaveOwnedSeries(filepath.Join(cfg.Output.Dir, "owned.csv")); err != nil {
			return nil, err
		}
	}
	return res, nil
}
