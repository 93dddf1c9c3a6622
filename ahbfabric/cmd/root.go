// Package cmd provides the command-line interface of the AHB fabric
// simulator.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/ahbfabric/simulation"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ahbfabric",
	Short: "ahbfabric simulates an AHB bus fabric cycle by cycle.",
	Long: `ahbfabric builds a fabric of masters and memory slaves from a ` +
		`YAML topology and runs the scripted traffic of every master. ` +
		`Environment variables and a .env file override the topology.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "",
		"YAML topology of the fabric; the default fabric if empty")
	rootCmd.PersistentFlags().String("env", ".env",
		"file with AHBFABRIC_* variables, ignored if missing")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// loadConfig reads the topology named by the flags of cmd and applies the
// environment to it.
func loadConfig(cmd *cobra.Command) (simulation.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env")

	return readConfig(path, envFile)
}

func readConfig(path, envFile string) (simulation.Config, error) {
	cfg := simulation.DefaultConfig()

	if path != "" {
		var err error

		cfg, err = simulation.LoadConfig(path)
		if err != nil {
			return simulation.Config{}, err
		}
	}

	if err := simulation.ApplyEnv(&cfg, envFile); err != nil {
		return simulation.Config{}, fmt.Errorf("environment: %w", err)
	}

	return cfg, nil
}
