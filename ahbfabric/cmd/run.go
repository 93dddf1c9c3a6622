package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/ahbfabric/simulation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the traffic of a fabric to completion.",
	Long: "`run` runs until every master has finished its script, or for " +
		"the number of cycles given by --cycles.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if db, _ := cmd.Flags().GetString("trace-db"); db != "" {
			cfg.TraceDB = db
		}

		if w, _ := cmd.Flags().GetBool("trace-wires"); w {
			cfg.TraceWires = true
		}

		if l, _ := cmd.Flags().GetBool("log-transfers"); l {
			cfg.LogTransfers = true
		}

		if u, _ := cmd.Flags().GetBool("unique-ids"); u {
			cfg.UniqueIDs = true
		}

		cycles, _ := cmd.Flags().GetUint64("cycles")
		limit, _ := cmd.Flags().GetUint64("limit")

		return runFabric(cfg, cycles, limit, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint64("cycles", 0,
		"run exactly this many cycles; run until finished if 0")
	runCmd.Flags().Uint64("limit", 1_000_000,
		"the most cycles to wait for the traffic to finish")
	runCmd.Flags().String("trace-db", "",
		"record the transfers into this SQLite database")
	runCmd.Flags().Bool("trace-wires", false,
		"also record the wires between each master and its decoder")
	runCmd.Flags().Bool("log-transfers", false,
		"log every transfer event to stderr")
	runCmd.Flags().Bool("unique-ids", false,
		"name transfers with globally unique IDs instead of counting")
}

func runFabric(
	cfg simulation.Config,
	cycles, limit uint64,
	out io.Writer,
) error {
	s, err := simulation.MakeBuilder().WithConfig(cfg).Build()
	if err != nil {
		return err
	}

	if cycles > 0 {
		s.Run(cycles)
	} else if _, finished := s.RunUntilFinished(limit); !finished {
		fmt.Fprintf(out, "traffic did not finish in %d cycles\n", limit)
	}

	report(s, out)

	return s.Terminate()
}

func report(s *simulation.Simulation, out io.Writer) {
	fmt.Fprintf(out, "%d cycles, %.9f s\n",
		s.Clock().CurrentCycle(), float64(s.Clock().Now()))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MASTER\tISSUED\tDONE\tABORTED")

	for _, g := range s.Generators() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", g.Name(),
			g.NumIssued(), len(g.Done()), len(g.Aborted()))
	}

	tw.Flush()

	fmt.Fprintf(out, "average latency: %.2f cycles\n",
		s.Collector().AverageLatency())
}
