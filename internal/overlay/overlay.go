// Package overlay renders faces and their proximity pairs as a GeoJSON
// feature collection in pixel coordinates, for annotation tools and map
// style viewers.
package overlay

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// Feature kinds, stored in the "kind" property.
const (
	KindFace = "face"
	KindPair = "pair"
)

// Build returns one Polygon feature per face box followed by one LineString
// feature per pair, joining the two face centers. Pairs referring to faces
// outside faces are skipped.
func Build(faces []model.FaceRecord, pairs []model.PairDistance) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(faces)+len(pairs)),
	}

	for i, f := range faces {
		fc.Features = append(fc.Features, faceFeature(i, f))
	}
	for _, p := range pairs {
		if p.I < 0 || p.J < 0 || p.I >= len(faces) || p.J >= len(faces) {
			continue
		}
		fc.Features = append(fc.Features, pairFeature(p))
	}
	return fc
}

// Marshal encodes the overlay for faces and pairs as GeoJSON.
func Marshal(faces []model.FaceRecord, pairs []model.PairDistance) ([]byte, error) {
	data, err := Build(faces, pairs).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "overlay: marshal")
	}
	return data, nil
}

func faceFeature(i int, f model.FaceRecord) *geojson.Feature {
	b := f.Bounds
	x1, y1, x2, y2 := float64(b.X1), float64(b.Y1), float64(b.X2), float64(b.Y2)
	ring := []float64{x1, y1, x2, y1, x2, y2, x1, y2, x1, y1}

	return &geojson.Feature{
		ID:       fmt.Sprintf("face-%d", i),
		Geometry: geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}),
		Properties: map[string]any{
			"kind":       KindFace,
			"index":      i,
			"masked":     f.Masked,
			"confidence": f.Confidence,
			"label":      f.Label(),
		},
	}
}

func pairFeature(p model.PairDistance) *geojson.Feature {
	line := []float64{
		float64(p.CenterA.X), float64(p.CenterA.Y),
		float64(p.CenterB.X), float64(p.CenterB.Y),
	}

	return &geojson.Feature{
		ID:       fmt.Sprintf("pair-%d-%d", p.I, p.J),
		Geometry: geom.NewLineStringFlat(geom.XY, line),
		Properties: map[string]any{
			"kind":        KindPair,
			"i":           p.I,
			"j":           p.J,
			"distance_cm": p.DistanceCM,
			"distance_ft": p.DistanceFt(),
			"pairing":     string(p.Pairing),
			"color":       p.Pairing.Color(),
			"label":       fmt.Sprintf("%.1f cm", p.DistanceCM),
		},
	}
}
