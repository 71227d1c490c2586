package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/util"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Show the daily cost series",
	Long: `Show the cost of every calendar day in the window ending at the latest run.

Examples:
  trialscope daily              # Configured window (30 days)
  trialscope daily --days 7     # Last week of activity`,
	RunE: runDaily,
}

var dailyDays int

func init() {
	rootCmd.AddCommand(dailyCmd)
	dailyCmd.Flags().IntVarP(&dailyDays, "days", "d", 0, "Number of days (1-365, default charts.daily_window)")
}

func runDaily(cmd *cobra.Command, args []string) error {
	days := dailyDays
	if days == 0 {
		days = cfg.Charts.DailyWindow
	}
	if days < 1 || days > 365 {
		return fmt.Errorf("days must be between 1 and 365, got %d", days)
	}

	ctx := context.Background()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	daily, err := app.API.DailyCosts(ctx, days)
	if err != nil {
		return err
	}

	values := make([]float64, len(daily))
	var total float64
	for i, d := range daily {
		values[i] = d.TotalCost
		total += d.TotalCost
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s over %d days\n\n", renderSparkline(values), util.FormatCost(total), days)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tCOST\tRUNS\tEXPERIMENTS")
	for _, d := range daily {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", d.Date, util.FormatCost(d.TotalCost), d.RunCount, d.ExperimentCount)
	}
	return w.Flush()
}
