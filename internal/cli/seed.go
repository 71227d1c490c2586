package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/adapters/csvsource"
	"github.com/emiliopalmerini/trialscope/internal/recordset"
	"github.com/emiliopalmerini/trialscope/internal/sample"
	"github.com/emiliopalmerini/trialscope/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate sample CSV data",
	Long: `Write experiments.csv, trials.csv and runs.csv with synthetic records.

Examples:
  trialscope seed                         # Four experiments into data.dir
  trialscope seed --experiments 10 --seed 7 --dir /tmp/demo`,
	RunE: runSeed,
}

var (
	seedDir         string
	seedExperiments int
	seedValue       uint64
)

func init() {
	rootCmd.AddCommand(seedCmd)
	defaults := sample.DefaultOptions()
	seedCmd.Flags().StringVarP(&seedDir, "dir", "d", "", "Output directory (default data.dir)")
	seedCmd.Flags().IntVarP(&seedExperiments, "experiments", "n", defaults.Experiments, "Number of experiments")
	seedCmd.Flags().Uint64Var(&seedValue, "seed", defaults.Seed, "Random seed")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if seedExperiments < 1 {
		return fmt.Errorf("experiments must be positive, got %d", seedExperiments)
	}
	dir := seedDir
	if dir == "" {
		dir = cfg.Data.Dir
	}

	opts := sample.DefaultOptions()
	opts.Experiments = seedExperiments
	opts.Seed = seedValue
	raw := sample.Generate(opts)

	if err := csvsource.Write(dir, raw); err != nil {
		return err
	}

	stats := recordset.Build(raw).Stats()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Generated:")
	fmt.Fprintf(out, "  - %d experiments\n", stats.Experiments)
	fmt.Fprintf(out, "  - %d trials\n", stats.Trials)
	fmt.Fprintf(out, "  - %d runs\n", stats.Runs)
	fmt.Fprintf(out, "Files saved to %s\n", dir)

	var total float64
	for _, r := range raw.Runs {
		if c := util.ParseNonNegative(r.Cost); c != nil {
			total += *c
		}
	}
	fmt.Fprintf(out, "Total cost: %s\n", util.FormatCost(total))
	return nil
}
