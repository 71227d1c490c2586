package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/adapters/httpapi"
	"github.com/emiliopalmerini/trialscope/internal/chart"
	"github.com/emiliopalmerini/trialscope/internal/ports"
	"github.com/emiliopalmerini/trialscope/internal/util"
	"github.com/emiliopalmerini/trialscope/internal/view"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save the charts of a running dashboard",
	Long: `Fetch the dashboard payloads from a running trialscope server and write
its charts as SVG files.

Examples:
  trialscope snapshot --url http://localhost:8080 --out snapshots
  trialscope snapshot --experiment 2                 # Uses api.url from the config`,
	RunE: runSnapshot,
}

var (
	snapshotURL        string
	snapshotOut        string
	snapshotExperiment int64
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().StringVarP(&snapshotURL, "url", "u", "", "Dashboard base URL (overrides api.url)")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "snapshot", "Output directory")
	snapshotCmd.Flags().Int64VarP(&snapshotExperiment, "experiment", "e", 0, "Also save this experiment's accuracy curve")
}

// newDashboardClient returns the API client, or a client that is never
// available when the API is not configured.
func newDashboardClient(c httpapi.Config) ports.DashboardAPI {
	client, err := httpapi.NewClient(c)
	if err != nil {
		return httpapi.NewNoOpClient()
	}
	return client
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	apiCfg := cfg.API
	if snapshotURL != "" {
		apiCfg.URL = snapshotURL
		apiCfg.Enabled = true
	}
	api := newDashboardClient(apiCfg)

	ctx := context.Background()
	if !api.IsAvailable(ctx) {
		return fmt.Errorf("dashboard API at %s is not available", apiCfg.URL)
	}

	d, err := mountCharts(ctx, api, view.Options{ExperimentID: snapshotExperiment})
	if err != nil {
		return err
	}

	names := []view.ChartName{view.ChartCost, view.ChartDaily}
	if snapshotExperiment != 0 {
		names = append(names, view.ChartAccuracy)
	}
	out := cmd.OutOrStdout()
	for _, name := range names {
		path := filepath.Join(snapshotOut, string(name)+".svg")
		err := writeFile(path, func(w io.Writer) error {
			return drawChart(d, name, chart.FormatSVG, true, w)
		})
		if errors.Is(err, view.ErrNoChart) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}

	stats := d.Stats()
	fmt.Fprintf(out, "%d experiments, %d runs, %s total\n",
		stats.TotalExperiments, stats.TotalRuns, util.FormatCost(stats.TotalCost))
	return nil
}
