package scorer

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// Counterfactual compares a scene before and after every unmasked face
// starts wearing a mask.
type Counterfactual struct {
	Before   *Result            `json:"before"`
	After    *Result            `json:"after"`
	Adoption model.MaskAdoption `json:"adoption"`
}

// WearMasks marks every unmasked face as masked, in index order, keeping
// each face's confidence. It modifies faces in place.
//
// PercentageIncrease is flipped/(N-flipped)*100. It is reported as 100 when
// nobody was flipped or when everybody was.
func WearMasks(faces []model.FaceRecord) model.MaskAdoption {
	var flipped int
	for i := range faces {
		if faces[i].WearMask() {
			flipped++
		}
	}

	adoption := model.MaskAdoption{Flipped: flipped, PercentageIncrease: 100}
	if flipped > 0 && flipped < len(faces) {
		adoption.PercentageIncrease = float64(flipped) / float64(len(faces)-flipped) * 100
	}
	return adoption
}

// Rescore assesses faces, applies WearMasks to them and assesses them
// again. faces is modified: after Rescore returns every face is masked.
func Rescore(faces []model.FaceRecord, cfg config.ScorerConfig) (*Counterfactual, error) {
	before, err := Assess(faces, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: assess before")
	}

	adoption := WearMasks(faces)

	after, err := Assess(faces, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "scorer: assess after")
	}

	zap.L().Info("scorer: mask adoption rescored",
		zap.Int("flipped", adoption.Flipped),
		zap.Float64("percentage_increase", adoption.PercentageIncrease),
		zap.String("before", string(before.Assessment.Tier)),
		zap.String("after", string(after.Assessment.Tier)),
	)

	return &Counterfactual{Before: before, After: after, Adoption: adoption}, nil
}
