package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/ahbfabric/simulation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build a fabric and step it from the web monitor.",
	Long: "`serve` builds the fabric without running it and starts the " +
		"monitor. The fabric advances when the monitor asks it to.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("port") {
			cfg.MonitorPort, _ = cmd.Flags().GetInt("port")
		}

		s, url, err := serveFabric(cfg)
		if err != nil {
			return err
		}

		if open, _ := cmd.Flags().GetBool("open"); open {
			if err := browser.OpenURL(url); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(),
					"cannot open a browser: %v\n", err)
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to quit.")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		return s.Terminate()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0,
		"port of the monitor; a free port if 0")
	serveCmd.Flags().Bool("open", false, "open the monitor in a browser")
}

func serveFabric(cfg simulation.Config) (*simulation.Simulation, string, error) {
	s, err := simulation.MakeBuilder().WithConfig(cfg).WithMonitor().Build()
	if err != nil {
		return nil, "", err
	}

	url, err := s.GetMonitor().StartServer()
	if err != nil {
		return nil, "", err
	}

	return s, url, nil
}
