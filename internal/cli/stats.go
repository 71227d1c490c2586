package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/domain"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show headline statistics",
	Long: `Show totals, averages and the trial success rate.

Examples:
  trialscope stats                  # All experiments
  trialscope stats --experiment 3   # One experiment`,
	RunE: runStats,
}

var statsExperiment int64

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int64VarP(&statsExperiment, "experiment", "e", 0, "Restrict to one experiment id")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	var stats domain.DashboardStats
	label := "All experiments"
	if statsExperiment != 0 {
		detail, err := app.API.ExperimentDetail(ctx, statsExperiment)
		if err != nil {
			return fmt.Errorf("experiment %d: %w", statsExperiment, err)
		}
		stats, err = app.API.ExperimentStats(ctx, statsExperiment)
		if err != nil {
			return err
		}
		label = fmt.Sprintf("Experiment: %s", detail.Name)
	} else {
		stats, err = app.API.DashboardStats(ctx)
		if err != nil {
			return err
		}
	}
	trends, err := app.API.Trends(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, label)
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Experiments:\t%d\n", stats.TotalExperiments)
	fmt.Fprintf(w, "Trials:\t%d\t(%d active, %d failed)\n", stats.TotalTrials, stats.ActiveTrials, stats.FailedTrials)
	fmt.Fprintf(w, "Runs:\t%d\n", stats.TotalRuns)
	fmt.Fprintf(w, "Total cost:\t%s\n", util.FormatCost(stats.TotalCost))
	fmt.Fprintf(w, "Avg accuracy:\t%s\n", util.FormatRatio(stats.AvgAccuracy))
	fmt.Fprintf(w, "Avg latency:\t%s\n", util.FormatOptional(stats.AvgLatencyMs, "%.0f ms"))
	fmt.Fprintf(w, "Success rate:\t%s\n", util.FormatRatio(stats.SuccessRate))
	fmt.Fprintf(w, "Cost trend:\t%s\n", trends.CostTrend)
	return w.Flush()
}
