package model

// Detection thresholds the detector counts are always reported at, so a
// caller can suggest re-tuning when they disagree with the chosen one.
const (
	LowDetectionThreshold  = 0.25
	HighDetectionThreshold = 0.75
)

// Scene is the detector output for a single image: ordered face records plus
// the image extents they live in.
type Scene struct {
	Source string       `json:"source,omitempty"`
	Width  int          `json:"width,omitempty"`
	Height int          `json:"height,omitempty"`
	Faces  []FaceRecord `json:"faces"`
}

// DetectionCounts holds face counts at the chosen detection threshold and at
// the two fixed reference thresholds.
type DetectionCounts struct {
	Threshold float64 `json:"threshold"`
	AtChosen  int     `json:"at_chosen"`
	AtLow     int     `json:"at_low"`
	AtHigh    int     `json:"at_high"`
}

// Ambiguous reports whether the reference thresholds would yield a different
// number of faces than the chosen one.
func (c DetectionCounts) Ambiguous() bool {
	return c.AtChosen != c.AtLow || c.AtChosen != c.AtHigh
}

// passes reports whether a face survives the detection threshold. Faces with
// an unknown detection score always pass.
func passes(f FaceRecord, threshold float64) bool {
	return f.DetectionScore == 0 || f.DetectionScore > threshold
}

// Filter returns a scene holding only the faces whose detection score is
// above threshold. Relative order is preserved.
func (s Scene) Filter(threshold float64) Scene {
	out := s
	out.Faces = make([]FaceRecord, 0, len(s.Faces))
	for _, f := range s.Faces {
		if passes(f, threshold) {
			out.Faces = append(out.Faces, f)
		}
	}
	return out
}

// DetectionCounts counts faces at threshold, LowDetectionThreshold and
// HighDetectionThreshold.
func (s Scene) DetectionCounts(threshold float64) DetectionCounts {
	c := DetectionCounts{Threshold: threshold}
	for _, f := range s.Faces {
		if passes(f, threshold) {
			c.AtChosen++
		}
		if passes(f, LowDetectionThreshold) {
			c.AtLow++
		}
		if passes(f, HighDetectionThreshold) {
			c.AtHigh++
		}
	}
	return c
}

// Clamp clips every face box to the scene extents. It is a no-op when the
// extents are unknown.
func (s *Scene) Clamp() {
	for i := range s.Faces {
		s.Faces[i].Bounds = s.Faces[i].Bounds.Clamp(s.Width, s.Height)
	}
}
