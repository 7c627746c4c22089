package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arbiter-systems/qagov/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "qagov",
	Short: "QA governance CLI",
	Long: `qagov is the command-line interface for the QA governance subsystem.

Inspect the trust ledger, review governance priorities, and run simulated
agent workloads through the full arbitration and drift pipeline.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json, yaml")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}
