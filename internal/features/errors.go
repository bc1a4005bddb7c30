package features

import "errors"

var (
	// ErrInvalidInput reports a malformed cutoff or tolerance, non-finite
	// coordinates, or empty inputs reaching the classifier or the aggregator
	// directly.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSkeleton reports a feature set with neither end-points nor
	// junction voxels. Callers must abort the run before classification.
	ErrInvalidSkeleton = errors.New("invalid skeleton")

	// ErrNoParticlesDetected reports an empty particle set.
	ErrNoParticlesDetected = errors.New("no particles detected")
)
