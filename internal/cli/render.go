package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/trialscope/internal/bridge"
	"github.com/emiliopalmerini/trialscope/internal/chart"
	"github.com/emiliopalmerini/trialscope/internal/ports"
	"github.com/emiliopalmerini/trialscope/internal/view"
)

var renderCmd = &cobra.Command{
	Use:   "render <cost|daily|accuracy>",
	Short: "Render a chart to an image file",
	Long: `Render one dashboard chart to a PNG or SVG file.

The format follows the file extension unless --format is given. With
--interactive the SVG is the dashboard's own scene rather than a static export.

Examples:
  trialscope render cost --out cost.png
  trialscope render daily --out daily.svg --interactive
  trialscope render accuracy --experiment 2 --out curve.png`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderOut         string
	renderFormat      string
	renderExperiment  int64
	renderInteractive bool
)

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (required)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "png or svg (default from the file extension)")
	renderCmd.Flags().Int64VarP(&renderExperiment, "experiment", "e", 0, "Experiment id for the accuracy chart")
	renderCmd.Flags().BoolVar(&renderInteractive, "interactive", false, "Write the dashboard SVG scene instead of a static export")
	_ = renderCmd.MarkFlagRequired("out")
}

func runRender(cmd *cobra.Command, args []string) error {
	name, err := view.ParseChartName(args[0])
	if err != nil {
		return err
	}
	if name == view.ChartAccuracy && renderExperiment == 0 {
		return fmt.Errorf("the accuracy chart needs --experiment")
	}

	formatName := renderFormat
	if formatName == "" {
		formatName = strings.TrimPrefix(filepath.Ext(renderOut), ".")
	}
	format, err := chart.ParseFormat(strings.ToLower(formatName))
	if err != nil {
		return err
	}
	if renderInteractive && format != chart.FormatSVG {
		return fmt.Errorf("--interactive writes SVG only")
	}

	ctx := context.Background()
	app, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if renderExperiment != 0 {
		if _, err := app.API.ExperimentDetail(ctx, renderExperiment); err != nil {
			return fmt.Errorf("experiment %d: %w", renderExperiment, err)
		}
	}

	d, err := mountCharts(ctx, app.API, view.Options{ExperimentID: renderExperiment})
	if err != nil {
		return err
	}

	if err := writeFile(renderOut, func(w io.Writer) error {
		return drawChart(d, name, format, renderInteractive, w)
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", renderOut)
	return nil
}

// discardNavigator ignores navigations; offline renders have nowhere to go.
type discardNavigator struct{}

func (discardNavigator) Navigate(context.Context, bridge.Route) error { return nil }

// mountCharts fetches the dashboard from api and settles it on its final frame.
func mountCharts(ctx context.Context, api ports.DashboardAPI, opts view.Options) (*view.Dashboard, error) {
	opts.Days = cfg.Charts.DailyWindow
	opts.TopN = cfg.Charts.DonutTopN
	opts.Window = cfg.Charts.TrendWindow
	opts.Width = cfg.Charts.Width
	opts.Height = cfg.Charts.Height
	opts.Chart = chart.Options{Mode: cfg.ChartMode()}

	d := view.New(api, discardNavigator{}, opts)
	if err := d.Mount(ctx); err != nil {
		return nil, err
	}
	d.Settle()
	return d, nil
}

// drawChart writes one chart either as its live SVG scene or as a static export.
func drawChart(d *view.Dashboard, name view.ChartName, format chart.Format, interactive bool, w io.Writer) error {
	switch name {
	case view.ChartCost:
		if interactive {
			return d.Cost().SVG(w)
		}
		return d.Cost().Export(w, format)
	case view.ChartDaily:
		if interactive {
			return d.Daily().SVG(w)
		}
		return d.Daily().Export(w, format)
	case view.ChartAccuracy:
		c := d.Accuracy()
		if c == nil {
			return view.ErrNoChart
		}
		if interactive {
			return c.SVG(w)
		}
		return c.Export(w, format)
	}
	return fmt.Errorf("%w: %s", view.ErrNoChart, name)
}

func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	bw := bufio.NewWriter(f)
	if err := fn(bw); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
