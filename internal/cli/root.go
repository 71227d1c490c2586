package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/config"
	"github.com/emiliopalmerini/trialscope/internal/logging"
)

var (
	configPath string
	cfg        config.Config
	logCloser  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "trialscope",
	Short: "Cost, accuracy and latency dashboards for ML experiments",
	Long: `trialscope aggregates experiment, trial and run records into cost,
accuracy and latency views.

Records are read from CSV files or a libsql database. Serve the interactive
dashboard, query rollups from the terminal, or render charts to images.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		closer, err := logging.Setup(cfg.Log)
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		return logCloser.Close()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
}
