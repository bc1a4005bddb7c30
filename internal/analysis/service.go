// Package analysis runs one particle classification end to end: validate the
// inputs, classify, summarise and, when asked to, append the summary row to a
// result table.
package analysis

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/config"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/imaging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/logging"
	"github.com/ironsheep/skeleton-tagger-mcp/internal/report"
)

// Request is the input of one run.
type Request struct {
	// Title names the particle image; it becomes the row label.
	Title string

	Particles features.ParticleSet
	Skeleton  features.SkeletonFeatureSet
	Run       config.RunConfig

	// Calibration of the particle image. The zero value means uncalibrated.
	Calibration imaging.Calibration

	// Image, when set, is used to check that every centroid lies inside it.
	Image image.Image
}

// Marker is the presentation record of one classified particle.
type Marker struct {
	Index    int               `json:"index"`
	Name     string            `json:"name"`
	Category features.Category `json:"category"`
	Color    string            `json:"color"`
}

// Report is the output of a successful run.
type Report struct {
	RunID        string                          `json:"run_id"`
	CreatedAt    time.Time                       `json:"created_at"`
	Title        string                          `json:"title"`
	Unit         string                          `json:"unit"`
	TieTolerance float64                         `json:"tie_tolerance"`
	Results      []features.ClassificationResult `json:"results"`
	Summary      features.ClassificationSummary  `json:"summary"`
	Markers      []Marker                        `json:"markers"`
	Row          report.Row                      `json:"row"`

	// Appended reports whether Row was written to the result table.
	Appended bool `json:"appended"`
}

// Service runs classifications. It is safe for concurrent use when its
// ResultTable is.
type Service struct {
	table report.ResultTable
	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithTable sets the table rows are appended to when a run asks for
// measurements to be displayed.
func WithTable(t report.ResultTable) Option {
	return func(s *Service) { s.table = t }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service.
func New(opts ...Option) *Service {
	s := &Service{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run validates req and classifies its particles.
//
// Errors:
//   - features.ErrInvalidSkeleton: the skeleton has no end-points and no
//     junction voxels.
//   - features.ErrNoParticlesDetected: the particle set is empty.
//   - features.ErrInvalidInput: bad parameters, calibration, or centroids
//     outside the image.
//
// On error nothing is appended to the result table and no report is returned.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Skeleton.Validate(); err != nil {
		return nil, err
	}
	if err := req.Particles.Validate(); err != nil {
		return nil, err
	}
	if err := req.Run.Validate(); err != nil {
		return nil, err
	}

	cal := req.Calibration
	if cal == (imaging.Calibration{}) {
		cal = imaging.Uncalibrated
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if req.Image != nil {
		if err := imaging.CheckCentroids(req.Image, cal, req.Particles); err != nil {
			return nil, err
		}
	}

	if n := len(req.Skeleton.JunctionVoxels); n < req.Skeleton.JunctionCount {
		logging.Logf("Warning: %d junction voxels for %d junctions in %q", n, req.Skeleton.JunctionCount, req.Title)
	}

	tolerance := req.Run.ResolveTieTolerance(cal.PixelWidth, cal.PixelHeight)
	classifier := features.NewClassifier(
		features.WithIndex(req.Run.IndexKind()),
		features.WithWorkers(req.Run.Workers),
	)

	start := time.Now()
	results, err := classifier.Classify(req.Particles, req.Skeleton, req.Run.CutoffDistance, tolerance)
	if err != nil {
		return nil, err
	}
	summary, err := features.Summarize(results, req.Skeleton, req.Run.CutoffDistance)
	if err != nil {
		return nil, err
	}
	logging.Debugf("classified %d particles against %d tips and %d junction voxels in %v",
		len(results), len(req.Skeleton.EndPoints), len(req.Skeleton.JunctionVoxels), time.Since(start))

	unit := cal.Unit
	if unit == "" || unit == imaging.Uncalibrated.Unit {
		if req.Skeleton.Unit != "" {
			unit = req.Skeleton.Unit
		}
	}

	rep := &Report{
		RunID:        s.newID(),
		CreatedAt:    s.now(),
		Title:        req.Title,
		Unit:         unit,
		TieTolerance: tolerance,
		Results:      results,
		Summary:      summary,
		Markers:      Markers(results),
	}
	rep.Row = report.SummaryRow(req.Title, summary, report.RowParams{
		Unit:           unit,
		ThresholdRange: req.Run.ThresholdRange(),
		SizeRange:      req.Run.SizeRange(),
	})
	rep.Row.RunID = rep.RunID
	rep.Row.CreatedAt = rep.CreatedAt

	if req.Run.DisplayMeasurements && s.table != nil {
		if err := s.table.AppendRow(ctx, rep.Row); err != nil {
			return nil, fmt.Errorf("failed to append result row: %w", err)
		}
		rep.Appended = true
	}

	return rep, nil
}

// Markers names and colours every result for display.
func Markers(results []features.ClassificationResult) []Marker {
	markers := make([]Marker, len(results))
	for i, r := range results {
		markers[i] = Marker{
			Index:    i,
			Name:     features.Label(r.Category, i, len(results)),
			Category: r.Category,
			Color:    r.Category.Hex(),
		}
	}
	return markers
}
