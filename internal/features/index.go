package features

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// NeighborIndex answers "nearest feature within radius r" queries over a fixed
// set of points. Implementations must be safe for concurrent reads.
type NeighborIndex interface {
	// NearestWithin returns the distance from p to the nearest indexed point
	// if that distance is <= radius. Otherwise it returns Unbounded, false.
	NearestWithin(p Point, radius float64) (Distance, bool)

	// Len returns the number of indexed points.
	Len() int
}

// IndexKind selects a NeighborIndex implementation.
type IndexKind int

const (
	// IndexBruteForce scans every point for every query.
	IndexBruteForce IndexKind = iota
	// IndexKDTree answers queries with a k-d tree.
	IndexKDTree
)

func (k IndexKind) String() string {
	switch k {
	case IndexBruteForce:
		return "brute"
	case IndexKDTree:
		return "kdtree"
	default:
		return fmt.Sprintf("IndexKind(%d)", int(k))
	}
}

// ParseIndexKind accepts "brute" (or "brute-force", "") and "kdtree" (or "kd-tree").
func ParseIndexKind(s string) (IndexKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "brute", "brute-force", "bruteforce":
		return IndexBruteForce, nil
	case "kdtree", "kd-tree", "kd":
		return IndexKDTree, nil
	default:
		return IndexBruteForce, fmt.Errorf("unknown index kind: %q", s)
	}
}

// NewIndex builds an index of the given kind over points. The points are copied.
func NewIndex(kind IndexKind, points []Point) NeighborIndex {
	switch kind {
	case IndexKDTree:
		return newKDTreeIndex(points)
	default:
		return newBruteForceIndex(points)
	}
}

type bruteForceIndex struct {
	points []Point
}

func newBruteForceIndex(points []Point) *bruteForceIndex {
	cp := make([]Point, len(points))
	copy(cp, points)
	return &bruteForceIndex{points: cp}
}

func (b *bruteForceIndex) Len() int { return len(b.points) }

func (b *bruteForceIndex) NearestWithin(p Point, radius float64) (Distance, bool) {
	best := math.Inf(1)
	for _, q := range b.points {
		d := p.DistanceTo(q)
		if d <= radius && d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return Unbounded, false
	}
	return Distance(best), true
}

type kdTreeIndex struct {
	tree *kdtree.Tree
	n    int
}

func newKDTreeIndex(points []Point) *kdTreeIndex {
	if len(points) == 0 {
		return &kdTreeIndex{}
	}
	pts := make(kdtree.Points, len(points))
	for i, p := range points {
		pts[i] = kdtree.Point{p.X, p.Y}
	}
	// kdtree.New partitions pts in place; pts is private to the index.
	return &kdTreeIndex{tree: kdtree.New(pts, false), n: len(points)}
}

func (k *kdTreeIndex) Len() int { return k.n }

func (k *kdTreeIndex) NearestWithin(p Point, radius float64) (Distance, bool) {
	if k.tree == nil {
		return Unbounded, false
	}
	nearest, sq := k.tree.Nearest(kdtree.Point{p.X, p.Y})
	if nearest == nil {
		return Unbounded, false
	}
	// kdtree reports squared Euclidean distances.
	d := math.Sqrt(sq)
	if !(d <= radius) {
		return Unbounded, false
	}
	return Distance(d), true
}
