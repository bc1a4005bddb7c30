package features

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// Ratio is a count expressed against a denominator.
type Ratio struct {
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// NewRatio computes Count/Total as a percentage rounded to three decimals.
// The percentage is 0 when Total is 0.
func NewRatio(count, total int) Ratio {
	r := Ratio{Count: count, Total: total}
	if total != 0 {
		r.Percent = math.Round(float64(count)/float64(total)*100*1000) / 1000
	}
	return r
}

// String formats the ratio as "count (percent%)", e.g. "3 (37.5%)".
func (r Ratio) String() string {
	pct := strconv.FormatFloat(r.Percent, 'f', -1, 64)
	if math.Trunc(r.Percent) == r.Percent {
		pct = strconv.FormatFloat(r.Percent, 'f', 1, 64)
	}
	return fmt.Sprintf("%d (%s%%)", r.Count, pct)
}

// CategoryCounts tallies results per category.
type CategoryCounts struct {
	Junction       int `json:"junction"`
	Tip            int `json:"tip"`
	JunctionAndTip int `json:"junction_and_tip"`
	NoFeature      int `json:"no_feature"`
}

// Of returns the count for one category.
func (c CategoryCounts) Of(cat Category) int {
	switch cat {
	case Junction:
		return c.Junction
	case Tip:
		return c.Tip
	case JunctionAndTip:
		return c.JunctionAndTip
	default:
		return c.NoFeature
	}
}

// Total returns the sum over all categories.
func (c CategoryCounts) Total() int {
	return c.Junction + c.Tip + c.JunctionAndTip + c.NoFeature
}

func (c *CategoryCounts) add(cat Category) {
	switch cat {
	case Junction:
		c.Junction++
	case Tip:
		c.Tip++
	case JunctionAndTip:
		c.JunctionAndTip++
	default:
		c.NoFeature++
	}
}

// ClassificationSummary aggregates one run's results. It is derived data and
// can be recomputed from the results and the feature set at any time.
type ClassificationSummary struct {
	Counts         CategoryCounts `json:"counts"`
	TotalParticles int            `json:"total_particles"`

	// JunctionsWithParticles counts Junction and JunctionAndTip particles
	// against the number of junctions. Several particles near the same
	// junction are each counted, so the ratio can exceed 100%.
	JunctionsWithParticles Ratio `json:"junctions_with_particles"`

	// TipsWithParticles counts Tip and JunctionAndTip particles against the
	// number of end-points, with the same double counting.
	TipsWithParticles Ratio `json:"tips_with_particles"`

	CutoffDistance float64 `json:"cutoff_distance"`

	// DensityMetric is NoFeature particles per unit of skeleton length. Nil
	// when the skeleton length is unknown.
	DensityMetric *float64 `json:"density_metric,omitempty"`

	// Mean distances over particles with a bounded distance of that kind.
	MeanJunctionDistance *float64 `json:"mean_junction_distance,omitempty"`
	MeanTipDistance      *float64 `json:"mean_tip_distance,omitempty"`
}

// Share returns the count of cat against all particles.
func (s ClassificationSummary) Share(cat Category) Ratio {
	return NewRatio(s.Counts.Of(cat), s.TotalParticles)
}

// Summarize aggregates results for the given feature set. It fails with
// ErrInvalidInput when results is empty.
func Summarize(results []ClassificationResult, features SkeletonFeatureSet, cutoffDistance float64) (ClassificationSummary, error) {
	if len(results) == 0 {
		return ClassificationSummary{}, fmt.Errorf("%w: no classification results", ErrInvalidInput)
	}

	var counts CategoryCounts
	var junctionDists, tipDists []float64
	for _, r := range results {
		counts.add(r.Category)
		if r.JunctionDistance.Bounded() {
			junctionDists = append(junctionDists, float64(r.JunctionDistance))
		}
		if r.TipDistance.Bounded() {
			tipDists = append(tipDists, float64(r.TipDistance))
		}
	}

	s := ClassificationSummary{
		Counts:                 counts,
		TotalParticles:         len(results),
		JunctionsWithParticles: NewRatio(counts.Junction+counts.JunctionAndTip, features.JunctionCount),
		TipsWithParticles:      NewRatio(counts.Tip+counts.JunctionAndTip, len(features.EndPoints)),
		CutoffDistance:         cutoffDistance,
	}
	if features.TotalSkeletonLength > 0 {
		d := float64(counts.NoFeature) / features.TotalSkeletonLength
		s.DensityMetric = &d
	}
	if len(junctionDists) > 0 {
		m := stat.Mean(junctionDists, nil)
		s.MeanJunctionDistance = &m
	}
	if len(tipDists) > 0 {
		m := stat.Mean(tipDists, nil)
		s.MeanTipDistance = &m
	}
	return s, nil
}
