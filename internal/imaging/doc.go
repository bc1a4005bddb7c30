// Package imaging loads the particle image that accompanies a classification
// run and relates it to the calibrated coordinates of particles and skeleton
// features.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X increasing
// rightward and Y increasing downward. Centroids are continuous, so a point is
// inside an image of width W when 0 <= x <= W.
//
// Particles and features are stored in calibrated units. Calibration.ToPixel
// divides by the pixel size to get back to pixel space.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Calibration is a value type.
//
// # Error Handling
//
// Calibration and bounds failures wrap features.ErrInvalidInput so callers can
// test them with errors.Is alongside the classifier's own input errors.
package imaging
