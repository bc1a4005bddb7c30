package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/analysis"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/config"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/imaging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/ingest"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/logging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/report"
)

var classifyFlags struct {
	particles    string
	features     string
	image        string
	title        string
	cutoff       float64
	tieTolerance float64
	tieFraction  float64
	pixelWidth   float64
	pixelHeight  float64
	unit         string
	format       string
	measure      bool
	index        string
	workers      int
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify particles from a Results CSV against a skeleton feature file",
	Example: `  skeleton-tagger classify --particles Results.csv --features skeleton.json
  skeleton-tagger classify --particles cells.json --features skeleton.json \
      --pixel-width 0.2 --pixel-height 0.2 --unit µm --cutoff 2.5 --format json`,
	Args: cobra.NoArgs,
	RunE: runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyFlags.particles, "particles", "", "particle file: Results CSV with X and Y columns, or JSON array of points")
	f.StringVar(&classifyFlags.features, "features", "", "skeleton feature JSON file")
	f.StringVar(&classifyFlags.image, "image", "", "particle image; centroids must lie inside it")
	f.StringVar(&classifyFlags.title, "title", "", "row label (default: image or particle file name)")
	f.Float64Var(&classifyFlags.cutoff, "cutoff", 0, "maximum 'snap-to' distance in calibrated units (default from profile, 5)")
	f.Float64Var(&classifyFlags.tieTolerance, "tie-tolerance", 0, "largest junction/tip distance difference treated as a tie")
	f.Float64Var(&classifyFlags.tieFraction, "tie-fraction", 0, "tie tolerance as a fraction of the smaller pixel dimension (default from profile, 0.5)")
	f.Float64Var(&classifyFlags.pixelWidth, "pixel-width", 1, "calibrated pixel width")
	f.Float64Var(&classifyFlags.pixelHeight, "pixel-height", 1, "calibrated pixel height")
	f.StringVar(&classifyFlags.unit, "unit", "", "calibration unit, e.g. µm")
	f.StringVar(&classifyFlags.format, "format", "text", "output format: text, csv or json")
	f.BoolVar(&classifyFlags.measure, "measure", false, "append the summary row to the report history")
	f.StringVar(&classifyFlags.index, "index", "", "nearest-feature search: brute or kdtree")
	f.IntVar(&classifyFlags.workers, "workers", 0, "goroutines used to classify particles")

	_ = classifyCmd.MarkFlagRequired("particles")
	_ = classifyCmd.MarkFlagRequired("features")
	classifyCmd.MarkFlagsMutuallyExclusive("tie-tolerance", "tie-fraction")
}

func runClassify(cmd *cobra.Command, args []string) error {
	switch classifyFlags.format {
	case "text", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q: want text, csv or json", classifyFlags.format)
	}

	particles, err := ingest.LoadParticles(classifyFlags.particles)
	if err != nil {
		return err
	}
	skeleton, err := ingest.LoadFeatures(classifyFlags.features)
	if err != nil {
		return err
	}

	run := cfg.Run
	flags := cmd.Flags()
	if flags.Changed("cutoff") {
		run.CutoffDistance = classifyFlags.cutoff
	}
	if flags.Changed("tie-tolerance") {
		tol := classifyFlags.tieTolerance
		run.TieTolerance = &tol
	}
	if flags.Changed("tie-fraction") {
		run.TieFraction = classifyFlags.tieFraction
		run.TieTolerance = nil
	}
	if flags.Changed("measure") {
		run.DisplayMeasurements = classifyFlags.measure
	}
	if flags.Changed("index") {
		run.Index = classifyFlags.index
	}
	if flags.Changed("workers") {
		run.Workers = classifyFlags.workers
	}

	req := analysis.Request{
		Title:     classifyFlags.title,
		Particles: particles,
		Skeleton:  skeleton,
		Run:       run,
		Calibration: imaging.Calibration{
			PixelWidth:  classifyFlags.pixelWidth,
			PixelHeight: classifyFlags.pixelHeight,
			Unit:        classifyFlags.unit,
		},
	}
	if req.Calibration.Unit == "" {
		req.Calibration.Unit = imaging.Uncalibrated.Unit
	}
	if classifyFlags.image != "" {
		img, err := imaging.NewImageCache().Load(classifyFlags.image)
		if err != nil {
			return err
		}
		req.Image = img
	}
	if req.Title == "" {
		req.Title = filepath.Base(classifyFlags.particles)
		if classifyFlags.image != "" {
			req.Title = filepath.Base(classifyFlags.image)
		}
	}

	var opts []analysis.Option
	history, err := openHistory()
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
		opts = append(opts, analysis.WithTable(history))
	} else if run.DisplayMeasurements {
		logging.Logf("Warning: measurements requested but no history database is configured (--db or %s); the summary row is not stored", config.EnvDatabase)
	}

	rep, err := analysis.New(opts...).Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch classifyFlags.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "csv":
		return report.NewCSVTable(out).AppendRow(cmd.Context(), rep.Row)
	default:
		return writeText(cmd, out, rep)
	}
}

// writeText prints one line per particle followed by the summary table.
func writeText(cmd *cobra.Command, out io.Writer, rep *analysis.Report) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Name\tCategory\tJunction dist.\tTip dist.\tColor")
	for i, m := range rep.Markers {
		r := rep.Results[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Category, formatDistance(r.JunctionDistance), formatDistance(r.TipDistance), m.Color)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)

	table := report.NewTextTable(out)
	if err := table.AppendRow(cmd.Context(), rep.Row); err != nil {
		return err
	}
	return table.Flush()
}

func formatDistance(d features.Distance) string {
	if !d.Bounded() {
		return "-"
	}
	return fmt.Sprintf("%.3f", float64(d))
}
