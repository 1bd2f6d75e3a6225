// Package model defines the face, scene and assessment types shared by the
// scoring core and its outer surfaces.
package model

import (
	"fmt"
	"image"
	"math"
)

// Bounds is an axis-aligned face box in image pixel coordinates.
type Bounds struct {
	X1 int `json:"x1" yaml:"x1"`
	Y1 int `json:"y1" yaml:"y1"`
	X2 int `json:"x2" yaml:"x2"`
	Y2 int `json:"y2" yaml:"y2"`
}

// Center returns the box center using integer floor division.
func (b Bounds) Center() image.Point {
	return image.Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Width returns the box width in pixels.
func (b Bounds) Width() int {
	return b.X2 - b.X1
}

// Height returns the box height in pixels. It is the reference height used
// for the per-face pixel-per-centimeter scale.
func (b Bounds) Height() int {
	return b.Y2 - b.Y1
}

// Clamp limits the box to the extents of a width x height image, the same
// way the detector stage clips boxes that run off the frame.
func (b Bounds) Clamp(width, height int) Bounds {
	if width <= 0 || height <= 0 {
		return b
	}
	return Bounds{
		X1: max(0, b.X1),
		Y1: max(0, b.Y1),
		X2: min(width-1, b.X2),
		Y2: min(height-1, b.Y2),
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// FaceRecord is one detected face with its mask classification.
//
// Mask state and classifier confidence are kept apart: toggling a mask flips
// Masked and leaves Confidence untouched.
type FaceRecord struct {
	Bounds Bounds `json:"bounds"`
	Masked bool   `json:"masked"`
	// Confidence is the classifier's confidence percentage in (0, 100].
	Confidence float64 `json:"confidence"`
	// DetectionScore is the face detector's confidence in [0, 1]; 0 means unknown.
	DetectionScore float64 `json:"detection_score,omitempty"`
}

// FromSignedConfidence builds a FaceRecord from the detector/classifier
// encoding where the sign carries the label (positive = masked) and the
// magnitude carries the confidence percentage.
func FromSignedConfidence(b Bounds, signed float64) FaceRecord {
	return FaceRecord{
		Bounds:     b,
		Masked:     signed > 0,
		Confidence: math.Abs(signed),
	}
}

// SignedConfidence returns the signed encoding of the mask classification.
func (f FaceRecord) SignedConfidence() float64 {
	if f.Masked {
		return f.Confidence
	}
	return -f.Confidence
}

// WearMask marks the face as masked. It reports whether the state changed.
func (f *FaceRecord) WearMask() bool {
	if f.Masked {
		return false
	}
	f.Masked = true
	return true
}

// RemoveMask marks the face as unmasked. It reports whether the state changed.
func (f *FaceRecord) RemoveMask() bool {
	if !f.Masked {
		return false
	}
	f.Masked = false
	return true
}

// Label returns the display label used on annotated images, e.g. "Mask: 97.0%".
func (f FaceRecord) Label() string {
	if f.Masked {
		return fmt.Sprintf("Mask: %.1f%%", f.Confidence)
	}
	return fmt.Sprintf("No Mask: %.1f%%", f.Confidence)
}

// Validate checks the record invariants. index is the record's position in
// its scene and is carried into the returned error. A zero-height box is
// accepted: it has no reference scale and is left out of pairing instead.
func (f FaceRecord) Validate(index int) error {
	b := f.Bounds
	switch {
	case b.X1 >= b.X2:
		return &InvalidFaceRecordError{Index: index, Reason: fmt.Sprintf("bounds %s: x1 must be less than x2", b)}
	case b.Y1 > b.Y2:
		return &InvalidFaceRecordError{Index: index, Reason: fmt.Sprintf("bounds %s: y1 must not exceed y2", b)}
	case b.X1 < 0 || b.Y1 < 0:
		return &InvalidFaceRecordError{Index: index, Reason: fmt.Sprintf("bounds %s: negative coordinates", b)}
	case math.IsNaN(f.Confidence) || f.Confidence <= 0:
		return &InvalidFaceRecordError{Index: index, Reason: "mask confidence must be non-zero"}
	case f.Confidence > 100:
		return &InvalidFaceRecordError{Index: index, Reason: fmt.Sprintf("mask confidence %.2f exceeds 100", f.Confidence)}
	case f.DetectionScore < 0 || f.DetectionScore > 1:
		return &InvalidFaceRecordError{Index: index, Reason: fmt.Sprintf("detection score %.3f outside [0, 1]", f.DetectionScore)}
	}
	return nil
}

// ValidateFaces validates every record and returns the first failure.
func ValidateFaces(faces []FaceRecord) error {
	for i, f := range faces {
		if err := f.Validate(i); err != nil {
			return err
		}
	}
	return nil
}

// CountMasked returns the number of masked faces.
func CountMasked(faces []FaceRecord) int {
	n := 0
	for _, f := range faces {
		if f.Masked {
			n++
		}
	}
	return n
}

// CloneFaces returns an independent copy of faces.
func CloneFaces(faces []FaceRecord) []FaceRecord {
	if faces == nil {
		return nil
	}
	out := make([]FaceRecord, len(faces))
	copy(out, faces)
	return out
}
