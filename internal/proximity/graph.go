package proximity

import (
	"image"

	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// Options configures Build.
type Options struct {
	// AvgFaceWidth is the assumed face width in centimeters. Must be positive.
	AvgFaceWidth float64
	// ShareEndpoints relaxes extraction so a pair is emitted when either of
	// its faces has not been drawn yet. A face may then appear in two pairs
	// and up to N-1 pairs are produced. By default every face appears in at
	// most one pair.
	ShareEndpoints bool
}

// candidate is the current best neighbor record held for a face.
type candidate struct {
	distance float64
	i, j     int
}

// Build pairs faces by nearest neighbor and returns the estimated distance of
// every emitted pair. Face indices in the result refer to positions in faces.
//
// The pairing runs in three passes over faces in ascending index order:
//
//  1. For each face i the nearest other face j is found, measuring center
//     distance in i's own scale (ties go to the later j). The pair is recorded
//     for both i and j, so a later face can take over j's record.
//  2. Each recorded pair (i, j) not yet refined is re-measured with j's scale
//     and the two estimates are averaged; both faces are marked refined.
//  3. Pairs are emitted in face order, skipping any pair with an endpoint
//     that was already drawn (see Options.ShareEndpoints).
//
// Faces whose scale is not positive are left out. Fewer than two usable
// faces yield no pairs.
func Build(faces []model.FaceRecord, opts Options) []model.PairDistance {
	n := len(faces)
	if n < 2 {
		return nil
	}

	ratios := Ratios(faces, opts.AvgFaceWidth)
	centers := make([]image.Point, n)
	for k, f := range faces {
		centers[k] = f.Bounds.Center()
		if ratios[k] <= 0 {
			zap.L().Warn("proximity: face excluded from pairing",
				zap.Int("index", k),
				zap.Stringer("bounds", f.Bounds),
			)
		}
	}

	best := make([]candidate, n)
	has := make([]bool, n)

	// Pass 1: nearest neighbor under each face's own scale.
	for i := 0; i < n; i++ {
		if ratios[i] <= 0 {
			continue
		}
		nearest := candidate{i: i, j: -1}
		for j := 0; j < n; j++ {
			if i == j || ratios[j] <= 0 {
				continue
			}
			d := pixelDistance(centers[i], centers[j]) / ratios[i]
			if nearest.j < 0 || d <= nearest.distance {
				nearest.distance, nearest.j = d, j
			}
		}
		if nearest.j < 0 {
			continue
		}
		best[i], best[nearest.j] = nearest, nearest
		has[i], has[nearest.j] = true, true
	}

	// Pass 2: average with the partner's scale.
	refined := make([]bool, n)
	for k := 0; k < n; k++ {
		if !has[k] || refined[k] {
			continue
		}
		c := best[k]
		d2 := pixelDistance(centers[c.j], centers[c.i]) / ratios[c.j]
		r := candidate{distance: (d2 + c.distance) / 2, i: c.i, j: c.j}
		best[c.i], best[c.j] = r, r
		refined[c.i], refined[c.j] = true, true
	}

	// Pass 3: extraction.
	drawn := make([]bool, n)
	var pairs []model.PairDistance
	for k := 0; k < n; k++ {
		if !has[k] {
			continue
		}
		c := best[k]
		if opts.ShareEndpoints {
			if drawn[c.i] && drawn[c.j] {
				continue
			}
		} else if drawn[c.i] || drawn[c.j] {
			continue
		}
		drawn[c.i], drawn[c.j] = true, true

		pairs = append(pairs, model.PairDistance{
			I:          c.i,
			J:          c.j,
			CenterA:    centers[c.i],
			CenterB:    centers[c.j],
			DistanceCM: c.distance,
			Pairing:    model.PairingOf(faces[c.i], faces[c.j]),
		})
	}

	return pairs
}
