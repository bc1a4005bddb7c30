// Package features classifies particles by their proximity to the topological
// features of a skeleton.
//
// A skeleton is described by a SkeletonFeatureSet: its end-points (tips), the
// voxels that make up its junctions, and the number of distinct junctions. A
// ParticleSet is an ordered list of particle centroids. Classify assigns every
// particle exactly one Category and Summarize aggregates the results into a
// ClassificationSummary.
//
// # Categories
//
// For each particle the nearest junction voxel and the nearest end-point are
// searched within the cutoff ("snap to") distance. The first matching rule wins:
//
//  1. NoFeature: neither a junction voxel nor an end-point lies within the cutoff.
//  2. JunctionAndTip: both lie within the cutoff and their distances differ by
//     at most the tie tolerance.
//  3. Tip: the nearest end-point is closer than the nearest junction voxel.
//  4. Junction: the nearest junction voxel is closer than the nearest end-point.
//
// The cutoff is inclusive: a feature exactly cutoff units away is associated.
//
// # Distances
//
// Distances are Euclidean and expressed in the calibrated units of the input
// coordinates. A distance with no feature inside the cutoff is "unbounded" and
// is represented by +Inf (see Unbounded). Unbounded distances encode as JSON
// null.
//
// # Tie Tolerance
//
// Centroids and skeleton voxels are both discretised, so a particle sitting
// midway between a junction and a tip rarely yields two exactly equal
// distances. The tie tolerance absorbs that noise. It is conventionally half of
// the smallest calibrated pixel dimension of the particle image (TieTolerance
// computes it from a configurable fraction).
//
// # Spatial Index
//
// Nearest-feature lookups go through the NeighborIndex interface. The default
// is a brute-force scan, which is fast enough for hundreds of particles against
// thousands of voxels. IndexKDTree switches to a k-d tree without changing any
// category.
//
// # Thread Safety
//
// Classify and Summarize are pure functions of their inputs. A Classifier may
// be shared between goroutines, and with WithWorkers(n) it classifies particles
// of one run concurrently. Feature sets are never mutated.
//
// # Errors
//
// Precondition violations are reported with the sentinel errors
// ErrInvalidInput, ErrInvalidSkeleton and ErrNoParticlesDetected, always wrapped
// with context. Use errors.Is to test for them.
package features
