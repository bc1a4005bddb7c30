package features

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Classifier assigns categories to particles. The zero value is not usable;
// create one with NewClassifier.
type Classifier struct {
	index   IndexKind
	workers int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithIndex selects the spatial index used for nearest-feature lookups.
func WithIndex(kind IndexKind) Option {
	return func(c *Classifier) { c.index = kind }
}

// WithWorkers classifies particles with up to n goroutines. Values below 2
// classify sequentially.
func WithWorkers(n int) Option {
	return func(c *Classifier) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// NewClassifier returns a Classifier using a brute-force index and a single
// worker unless configured otherwise.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{index: IndexBruteForce, workers: 1}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify assigns a category to every particle using the default Classifier.
func Classify(particles ParticleSet, features SkeletonFeatureSet, cutoffDistance, tieTolerance float64) ([]ClassificationResult, error) {
	return NewClassifier().Classify(particles, features, cutoffDistance, tieTolerance)
}

// Classify returns one ClassificationResult per particle, in particle order.
//
// Parameters:
//   - particles: Centroids to classify. Must not be empty and every coordinate
//     must be finite.
//   - features: Skeleton features. Must contain at least one end-point or
//     junction voxel, all with finite coordinates.
//   - cutoffDistance: Maximum association distance (inclusive). Must be > 0.
//   - tieTolerance: Maximum |junction - tip| distance difference treated as a
//     tie. Must be >= 0.
//
// All precondition failures wrap ErrInvalidInput and are detected before any
// work is done.
func (c *Classifier) Classify(particles ParticleSet, features SkeletonFeatureSet, cutoffDistance, tieTolerance float64) ([]ClassificationResult, error) {
	if len(particles) == 0 {
		return nil, fmt.Errorf("%w: empty particle set", ErrInvalidInput)
	}
	if !(cutoffDistance > 0) || math.IsInf(cutoffDistance, 1) {
		return nil, fmt.Errorf("%w: cutoff distance must be a positive number, got %v", ErrInvalidInput, cutoffDistance)
	}
	if !(tieTolerance >= 0) || math.IsInf(tieTolerance, 1) {
		return nil, fmt.Errorf("%w: tie tolerance must be a non-negative number, got %v", ErrInvalidInput, tieTolerance)
	}
	if features.Empty() {
		return nil, fmt.Errorf("%w: feature set has no end-points and no junction voxels", ErrInvalidInput)
	}
	if err := checkFinite("particle", particles); err != nil {
		return nil, err
	}
	if err := checkFinite("end-point", features.EndPoints); err != nil {
		return nil, err
	}
	if err := checkFinite("junction voxel", features.JunctionVoxels); err != nil {
		return nil, err
	}

	junctions := NewIndex(c.index, features.JunctionVoxels)
	tips := NewIndex(c.index, features.EndPoints)

	results := make([]ClassificationResult, len(particles))
	classifyRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			results[i] = classifyOne(particles[i], junctions, tips, cutoffDistance, tieTolerance)
		}
	}

	if c.workers <= 1 || len(particles) < 2 {
		classifyRange(0, len(particles))
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	chunk := (len(particles) + c.workers - 1) / c.workers
	for lo := 0; lo < len(particles); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(particles))
		g.Go(func() error {
			classifyRange(lo, hi)
			return nil
		})
	}
	// Workers only write their own slots and never fail.
	_ = g.Wait()

	return results, nil
}

func classifyOne(p Point, junctions, tips NeighborIndex, cutoff, tolerance float64) ClassificationResult {
	jd, _ := junctions.NearestWithin(p, cutoff)
	td, _ := tips.NearestWithin(p, cutoff)
	return ClassificationResult{
		Category:         categorize(jd, td, tolerance),
		JunctionDistance: jd,
		TipDistance:      td,
	}
}

// categorize applies the category rules in priority order.
func categorize(jd, td Distance, tolerance float64) Category {
	switch {
	case !jd.Bounded() && !td.Bounded():
		return NoFeature
	case jd.Bounded() && td.Bounded() && math.Abs(float64(jd-td)) <= tolerance:
		return JunctionAndTip
	case td < jd:
		return Tip
	case jd < td:
		return Junction
	default:
		// Unreachable with tolerance >= 0.
		return JunctionAndTip
	}
}

// TieTolerance returns fraction × min(pixelWidth, pixelHeight). Non-positive
// pixel sizes fall back to 1 (uncalibrated pixels).
func TieTolerance(pixelWidth, pixelHeight, fraction float64) float64 {
	if !(pixelWidth > 0) {
		pixelWidth = 1
	}
	if !(pixelHeight > 0) {
		pixelHeight = 1
	}
	return fraction * math.Min(pixelWidth, pixelHeight)
}

// Label returns the marker name for the particle at index among total
// particles, e.g. "Tip:007" for index 7 of 120. The index is zero-padded to the
// number of digits of total.
func Label(c Category, index, total int) string {
	width := len(strconv.Itoa(total))
	return fmt.Sprintf("%s:%0*d", c, width, index)
}

func checkFinite(what string, points []Point) error {
	for i, p := range points {
		if !p.finite() {
			return fmt.Errorf("%w: %s %d has non-finite coordinates (%v, %v)", ErrInvalidInput, what, i, p.X, p.Y)
		}
	}
	return nil
}
