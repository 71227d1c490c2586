package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

var curveCmd = &cobra.Command{
	Use:   "curve <experiment-id>",
	Short: "Show an experiment's accuracy curve",
	Long: `Show the accuracy of each trial of an experiment in time order.

Examples:
  trialscope curve 2`,
	Args: cobra.ExactArgs(1),
	RunE: runCurve,
}

func init() {
	rootCmd.AddCommand(curveCmd)
}

func runCurve(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid experiment id: %s", args[0])
	}

	ctx := context.Background()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	detail, err := app.API.ExperimentDetail(ctx, id)
	if err != nil {
		return fmt.Errorf("experiment %d: %w", id, err)
	}
	points, err := app.API.AccuracyCurve(ctx, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(points) == 0 {
		fmt.Fprintf(out, "%s has no trials with accuracy.\n", detail.Name)
		return nil
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Accuracy
	}
	fmt.Fprintf(out, "%s  %s\n\n", detail.Name, renderSparkline(values))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tTIME\tACCURACY\tSTATUS")
	for _, p := range points {
		fmt.Fprintf(w, "%d\t%s\t%.1f%%\t%s\n", p.TrialID, p.Timestamp.Format("2006-01-02 15:04"), p.Accuracy*100, statusLabel(p.Status))
	}
	return w.Flush()
}

func statusLabel(s domain.TrialStatus) string {
	if s == "" {
		return "-"
	}
	return string(s)
}
