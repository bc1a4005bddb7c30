package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Point is a 2D coordinate in calibrated image units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	dx := q.X - p.X
	dy := q.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Distance is a particle-to-feature distance. Unbounded (+Inf) means no
// feature of that kind lies within the cutoff.
type Distance float64

// Unbounded is the distance reported when no feature lies within the cutoff.
var Unbounded = Distance(math.Inf(1))

// Bounded reports whether a feature was found within the cutoff.
func (d Distance) Bounded() bool {
	return !math.IsInf(float64(d), 1)
}

// MarshalJSON encodes unbounded distances as null.
func (d Distance) MarshalJSON() ([]byte, error) {
	if !d.Bounded() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// UnmarshalJSON decodes null as Unbounded.
func (d *Distance) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Unbounded
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*d = Distance(f)
	return nil
}

// SkeletonFeatureSet holds the topological features of one skeleton.
//
// A junction may span several adjacent voxels, so JunctionVoxels usually holds
// more entries than JunctionCount. The set is read-only once built.
type SkeletonFeatureSet struct {
	// EndPoints are skeleton voxels with exactly one neighbour. Order is irrelevant.
	EndPoints []Point `json:"end_points"`

	// JunctionVoxels are skeleton voxels with more than two neighbours.
	JunctionVoxels []Point `json:"junction_voxels"`

	// JunctionCount is the number of distinct junctions (not voxels).
	JunctionCount int `json:"junction_count"`

	// TotalSkeletonLength is the summed branch length in calibrated units.
	// Zero means the length is unknown.
	TotalSkeletonLength float64 `json:"total_skeleton_length,omitempty"`

	// Unit names the calibrated unit of all coordinates and lengths (e.g. "µm").
	Unit string `json:"unit,omitempty"`
}

// Empty reports whether the set has neither end-points nor junction voxels.
func (s SkeletonFeatureSet) Empty() bool {
	return len(s.EndPoints) == 0 && len(s.JunctionVoxels) == 0
}

// Validate checks that the set describes a usable skeleton.
//
// A set without end-points and junction voxels fails with ErrInvalidSkeleton.
// Negative counts or lengths and non-finite coordinates fail with ErrInvalidInput.
func (s SkeletonFeatureSet) Validate() error {
	if s.Empty() {
		return fmt.Errorf("%w: no end-points and no junction voxels", ErrInvalidSkeleton)
	}
	if s.JunctionCount < 0 {
		return fmt.Errorf("%w: negative junction count %d", ErrInvalidInput, s.JunctionCount)
	}
	if s.TotalSkeletonLength < 0 || math.IsNaN(s.TotalSkeletonLength) || math.IsInf(s.TotalSkeletonLength, 0) {
		return fmt.Errorf("%w: skeleton length %v", ErrInvalidInput, s.TotalSkeletonLength)
	}
	for i, p := range s.EndPoints {
		if !p.finite() {
			return fmt.Errorf("%w: end-point %d is not finite", ErrInvalidInput, i)
		}
	}
	for i, p := range s.JunctionVoxels {
		if !p.finite() {
			return fmt.Errorf("%w: junction voxel %d is not finite", ErrInvalidInput, i)
		}
	}
	return nil
}

// ParticleSet is the ordered list of particle centroids. Results are aligned
// with it by index.
type ParticleSet []Point

// Validate fails with ErrNoParticlesDetected when the set is empty and with
// ErrInvalidInput when a centroid is not finite.
func (ps ParticleSet) Validate() error {
	if len(ps) == 0 {
		return ErrNoParticlesDetected
	}
	for i, p := range ps {
		if !p.finite() {
			return fmt.Errorf("%w: particle %d is not finite", ErrInvalidInput, i)
		}
	}
	return nil
}

// Category is the feature a particle is associated with.
type Category int

const (
	NoFeature Category = iota
	Junction
	Tip
	JunctionAndTip
)

// Categories lists every category in report order.
var Categories = []Category{Junction, Tip, JunctionAndTip, NoFeature}

var categoryNames = map[Category]string{
	NoFeature:      "NoFeature",
	Junction:       "Junction",
	Tip:            "Tip",
	JunctionAndTip: "JunctionAndTip",
}

// Marker colours, one per category.
var palette = map[Category]colorful.Color{
	Junction:       {R: 1, G: 0, B: 1},
	Tip:            {R: 0, G: 1, B: 0},
	JunctionAndTip: {R: 1, G: 0, B: 0},
	NoFeature:      {R: 0, G: 0, B: 1},
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Color returns the marker colour presenters use for the category.
func (c Category) Color() colorful.Color {
	return palette[c]
}

// Hex returns Color as "#rrggbb".
func (c Category) Hex() string {
	return c.Color().Hex()
}

// ParseCategory parses a category name, ignoring case.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return NoFeature, fmt.Errorf("unknown category: %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if _, ok := categoryNames[c]; !ok {
		return nil, fmt.Errorf("unknown category: %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClassificationResult is the outcome for one particle. It is never mutated
// after Classify returns it.
type ClassificationResult struct {
	Category         Category `json:"category"`
	JunctionDistance Distance `json:"junction_distance"`
	TipDistance      Distance `json:"tip_distance"`
}
