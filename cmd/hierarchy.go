package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/gsim-cloning/evacsim/sim"
	"github.com/gsim-cloning/evacsim/sim/trace"
)

// hierarchyCmd prints the distance matrix and parent table without running.
var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Print the clone distance matrix and minimum spanning tree",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg, err := loadConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := printHierarchy(cmd.OutOrStdout(), cfg); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func printHierarchy(w io.Writer, cfg sim.ScenarioConfig) error {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelHierarchy})
	sc, err := sim.NewScenario(cfg, st)
	if err != nil {
		return err
	}
	if st.Matrix == nil {
		return fmt.Errorf("hierarchy was not recorded")
	}
	fmt.Fprintln(w, "distance matrix:")
	fmt.Fprint(w, trace.FormatDistanceMatrix(*st.Matrix))
	fmt.Fprintln(w, "hierarchy (parent - child: weight):")
	fmt.Fprint(w, trace.FormatHierarchy(st.Hierarchy))
	fmt.Fprintf(w, "total weight: %d\n", sc.Hierarchy.TotalWeight())
	return nil
}
