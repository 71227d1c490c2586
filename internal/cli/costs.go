package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/util"
)

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show the cost breakdown by experiment",
	Long: `Show each experiment's share of the total cost, most expensive first.

Examples:
  trialscope costs            # Every experiment
  trialscope costs --top 5    # The five most expensive`,
	RunE: runCosts,
}

var costsTop int

func init() {
	rootCmd.AddCommand(costsCmd)
	costsCmd.Flags().IntVarP(&costsTop, "top", "n", 0, "Show only the N most expensive experiments")
}

func runCosts(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	costs, err := app.API.CostBreakdown(ctx)
	if err != nil {
		return err
	}
	if costsTop > 0 && len(costs) > costsTop {
		costs = costs[:costsTop]
	}

	out := cmd.OutOrStdout()
	if len(costs) == 0 {
		fmt.Fprintln(out, "No costs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXPERIMENT\tCOST\tSHARE\tRUNS")
	for _, c := range costs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			c.ExperimentID, c.ExperimentName, util.FormatCost(c.TotalCost), util.FormatPercent(c.Percentage), c.RunCount)
	}
	return w.Flush()
}
