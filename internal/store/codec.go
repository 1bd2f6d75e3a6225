package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// runDocs holds the JSON columns of a run row.
type runDocs struct {
	assessment []byte
	adoption   []byte
	after      []byte
	faces      []byte
}

func encodeRun(run *model.AssessmentRun) (runDocs, error) {
	var d runDocs
	var err error

	if d.assessment, err = json.Marshal(run.Assessment); err != nil {
		return d, eris.Wrap(err, "store: marshal assessment")
	}
	if run.Adoption != nil {
		if d.adoption, err = json.Marshal(run.Adoption); err != nil {
			return d, eris.Wrap(err, "store: marshal adoption")
		}
	}
	if run.After != nil {
		if d.after, err = json.Marshal(run.After); err != nil {
			return d, eris.Wrap(err, "store: marshal after")
		}
	}
	if len(run.Faces) > 0 {
		if d.faces, err = json.Marshal(run.Faces); err != nil {
			return d, eris.Wrap(err, "store: marshal faces")
		}
	}
	return d, nil
}

func (d runDocs) decodeInto(run *model.AssessmentRun) error {
	if err := json.Unmarshal(d.assessment, &run.Assessment); err != nil {
		return eris.Wrapf(err, "store: unmarshal assessment for run %s", run.ID)
	}
	if len(d.adoption) > 0 {
		if err := json.Unmarshal(d.adoption, &run.Adoption); err != nil {
			return eris.Wrapf(err, "store: unmarshal adoption for run %s", run.ID)
		}
	}
	if len(d.after) > 0 {
		if err := json.Unmarshal(d.after, &run.After); err != nil {
			return eris.Wrapf(err, "store: unmarshal after for run %s", run.ID)
		}
	}
	if len(d.faces) > 0 {
		if err := json.Unmarshal(d.faces, &run.Faces); err != nil {
			return eris.Wrapf(err, "store: unmarshal faces for run %s", run.ID)
		}
	}
	return nil
}
