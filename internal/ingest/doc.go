package ingest

import (
	"github.com/rotisserie/eris"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// FaceDoc is one detected face as written by the detector. Prob is the
// signed mask confidence: positive means masked, negative unmasked.
type FaceDoc struct {
	Box       []int   `json:"box" yaml:"box"`
	Prob      float64 `json:"prob" yaml:"prob"`
	Detection float64 `json:"detection,omitempty" yaml:"detection,omitempty"`
}

// SceneDoc is the document form of a scene.
type SceneDoc struct {
	Source string    `json:"source,omitempty" yaml:"source,omitempty"`
	Width  int       `json:"width,omitempty" yaml:"width,omitempty"`
	Height int       `json:"height,omitempty" yaml:"height,omitempty"`
	Faces  []FaceDoc `json:"faces" yaml:"faces"`
}

// Record converts the document to a face record.
func (d FaceDoc) Record() (model.FaceRecord, error) {
	if len(d.Box) != 4 {
		return model.FaceRecord{}, eris.Errorf("box has %d coordinates, want 4", len(d.Box))
	}
	f := model.FromSignedConfidence(model.Bounds{X1: d.Box[0], Y1: d.Box[1], X2: d.Box[2], Y2: d.Box[3]}, d.Prob)
	f.DetectionScore = d.Detection
	return f, nil
}

// Scene converts the document to a scene. Face order is preserved.
func (d SceneDoc) Scene() (*model.Scene, error) {
	faces, err := records(d.Faces)
	if err != nil {
		return nil, err
	}
	return &model.Scene{Source: d.Source, Width: d.Width, Height: d.Height, Faces: faces}, nil
}

// NewFaceDoc is the inverse of FaceDoc.Record.
func NewFaceDoc(f model.FaceRecord) FaceDoc {
	b := f.Bounds
	return FaceDoc{Box: []int{b.X1, b.Y1, b.X2, b.Y2}, Prob: f.SignedConfidence(), Detection: f.DetectionScore}
}

func records(docs []FaceDoc) ([]model.FaceRecord, error) {
	faces := make([]model.FaceRecord, 0, len(docs))
	for i, d := range docs {
		f, err := d.Record()
		if err != nil {
			return nil, eris.Wrapf(err, "face %d", i)
		}
		faces = append(faces, f)
	}
	return faces, nil
}
