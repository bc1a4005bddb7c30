package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/skeleton-tagger-mcp/internal/features"
)

// Calibration maps pixels to physical units. Particle centroids and skeleton
// features are both expressed in calibrated units.
type Calibration struct {
	PixelWidth  float64 `json:"pixel_width"`
	PixelHeight float64 `json:"pixel_height"`
	Unit        string  `json:"unit"`
}

// Uncalibrated is the identity calibration.
var Uncalibrated = Calibration{PixelWidth: 1, PixelHeight: 1, Unit: "pixel"}

// Validate checks that both pixel dimensions are positive and finite.
func (c Calibration) Validate() error {
	if !(c.PixelWidth > 0) || math.IsInf(c.PixelWidth, 0) {
		return fmt.Errorf("%w: pixel width must be positive, got %v", features.ErrInvalidInput, c.PixelWidth)
	}
	if !(c.PixelHeight > 0) || math.IsInf(c.PixelHeight, 0) {
		return fmt.Errorf("%w: pixel height must be positive, got %v", features.ErrInvalidInput, c.PixelHeight)
	}
	return nil
}

// TieTolerance returns fraction of the smaller pixel dimension.
func (c Calibration) TieTolerance(fraction float64) float64 {
	return features.TieTolerance(c.PixelWidth, c.PixelHeight, fraction)
}

// ToPixel converts a calibrated point to pixel coordinates.
func (c Calibration) ToPixel(p features.Point) features.Point {
	return features.Point{X: p.X / c.PixelWidth, Y: p.Y / c.PixelHeight}
}

// OutOfBoundsError reports a centroid that falls outside the particle image.
type OutOfBoundsError struct {
	Index  int
	Point  features.Point
	Bounds image.Rectangle
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("particle %d at (%g, %g) px lies outside image bounds %v",
		e.Index, e.Point.X, e.Point.Y, e.Bounds)
}

// Unwrap lets callers match the error against features.ErrInvalidInput.
func (e *OutOfBoundsError) Unwrap() error {
	return features.ErrInvalidInput
}

// CheckCentroids verifies that every point, converted to pixels with cal, lies
// within the continuous extent of img. The first offending point is reported as
// an *OutOfBoundsError.
func CheckCentroids(img image.Image, cal Calibration, points []features.Point) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	b := img.Bounds()
	for i, p := range points {
		px := cal.ToPixel(p)
		if px.X < float64(b.Min.X) || px.X > float64(b.Max.X) ||
			px.Y < float64(b.Min.Y) || px.Y > float64(b.Max.Y) {
			return &OutOfBoundsError{Index: i, Point: px, Bounds: b}
		}
	}
	return nil
}
