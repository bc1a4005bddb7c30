package report

import (
	"math"
	"strconv"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

// Column headers of a summary row, in output order.
const (
	ColJunctionParticles  = "Junction particles"
	ColTipParticles       = "Tip particles"
	ColBothParticles      = "J+T particles"
	ColUnclassified       = "Unc. particles"
	ColJunctionsCovered   = "Junctions w/ particles"
	ColTipsCovered        = "Tips w/ particles"
	ColCutoff             = "Max 'snap-to' dist."
	ColThresholdRange     = "Threshold range"
	ColSizeRange          = "Size range"
	ColUnclassifiedLength = "Unc. particles/length"
)

// RowParams carries the run settings echoed into a summary row.
type RowParams struct {
	Unit           string
	ThresholdRange string
	SizeRange      string
}

// SummaryRow builds the table row for one classification run.
func SummaryRow(title string, s features.ClassificationSummary, p RowParams) Row {
	row := Row{Title: title}
	row.Add(ColJunctionParticles, s.Share(features.Junction).String())
	row.Add(ColTipParticles, s.Share(features.Tip).String())
	row.Add(ColBothParticles, s.Share(features.JunctionAndTip).String())
	row.Add(ColUnclassified, s.Share(features.NoFeature).String())
	row.Add(ColJunctionsCovered, s.JunctionsWithParticles.String())
	row.Add(ColTipsCovered, s.TipsWithParticles.String())
	row.Add(ColCutoff, decimal(s.CutoffDistance)+p.Unit)
	row.Add(ColThresholdRange, p.ThresholdRange)
	row.Add(ColSizeRange, p.SizeRange)
	if s.DensityMetric != nil {
		row.Add(ColUnclassifiedLength, strconv.FormatFloat(*s.DensityMetric, 'f', 4, 64))
	}
	return row
}

// decimal formats f with at least one fractional digit: 5 -> "5.0".
func decimal(f float64) string {
	if math.Trunc(f) == f && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
