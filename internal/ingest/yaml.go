package ingest

import (
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// decodeYAML accepts the same shapes as decodeJSON.
func decodeYAML(data []byte) (*model.Scene, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, eris.Wrap(err, "yaml: parse")
	}
	if len(root.Content) == 0 {
		return nil, eris.New("yaml: empty document")
	}

	node := root.Content[0]
	if node.Kind == yaml.SequenceNode {
		var docs []FaceDoc
		if err := node.Decode(&docs); err != nil {
			return nil, eris.Wrap(err, "yaml: decode faces")
		}
		faces, err := records(docs)
		if err != nil {
			return nil, err
		}
		return &model.Scene{Faces: faces}, nil
	}

	var doc SceneDoc
	if err := node.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "yaml: decode scene")
	}
	return doc.Scene()
}
