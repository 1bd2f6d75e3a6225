// Package proximity estimates physical distances between faces in a single
// image and pairs each face with its nearest neighbor.
//
// Distances are monocular: every face calibrates its own pixel-per-centimeter
// scale from the height of its bounding box and an assumed real-world face
// width. No camera intrinsics are involved, so results are relative risk
// estimates rather than measurements.
package proximity

import (
	"image"
	"math"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// DefaultAvgFaceWidth is the assumed real-world face width in centimeters.
const DefaultAvgFaceWidth = 20.0

// Ratio returns the face's reference scale in pixels per centimeter: its box
// height divided by avgFaceWidth. It returns 0 for a degenerate box or a
// non-positive width; callers treat 0 as "cannot be paired".
func Ratio(face model.FaceRecord, avgFaceWidth float64) float64 {
	h := face.Bounds.Height()
	if h <= 0 || !(avgFaceWidth > 0) {
		return 0
	}
	return float64(h) / avgFaceWidth
}

// Ratios returns Ratio for every face, in order.
func Ratios(faces []model.FaceRecord, avgFaceWidth float64) []float64 {
	out := make([]float64, len(faces))
	for i, f := range faces {
		out[i] = Ratio(f, avgFaceWidth)
	}
	return out
}

// pixelDistance is the Euclidean distance between two pixel centers.
func pixelDistance(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
