package scorer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/proximity"
)

const (
	msgNoFaces    = "Please run the face detector first"
	msgSingleFace = "Only 1 person in the image, chance of contracting COVID: low"
	msgNoPairs    = "No faces could be paired"
)

// boundaryTolerance absorbs rounding when a density lands on the high bound.
const boundaryTolerance = 1e-9

// Result is one scoring pass over a set of faces. Faces is a copy of the
// input as it was scored.
type Result struct {
	Assessment model.RiskAssessment `json:"assessment"`
	Pairs      []model.PairDistance `json:"pairs"`
	Faces      []model.FaceRecord   `json:"faces"`
}

// Assess validates cfg and faces, pairs the faces and scores the pairs.
func Assess(faces []model.FaceRecord, cfg config.ScorerConfig) (*Result, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if err := model.ValidateFaces(faces); err != nil {
		return nil, err
	}

	pairs := proximity.Build(faces, proximityOptions(cfg))
	assessment := Score(faces, pairs, cfg)

	zap.L().Debug("scorer: assessed faces",
		zap.Int("faces", assessment.FaceCount),
		zap.Int("pairs", assessment.PairCount),
		zap.Float64("density", assessment.DensityScore),
		zap.String("tier", string(assessment.Tier)),
	)

	return &Result{Assessment: assessment, Pairs: pairs, Faces: model.CloneFaces(faces)}, nil
}

// Score aggregates pairs into a RiskAssessment. It does not validate its
// inputs; pairs are expected to come from proximity.Build over faces.
func Score(faces []model.FaceRecord, pairs []model.PairDistance, cfg config.ScorerConfig) model.RiskAssessment {
	a := model.RiskAssessment{FaceCount: len(faces)}

	switch len(faces) {
	case 0:
		a.Status = model.StatusInsufficientFaces
		a.Message = msgNoFaces
		return a
	case 1:
		a.Status = model.StatusSingleFace
		a.Tier = model.TierVeryLow
		a.Message = msgSingleFace
		return a
	}

	if len(pairs) == 0 {
		a.Status = model.StatusInsufficientFaces
		a.Message = msgNoPairs
		return a
	}

	var total, distances float64
	for _, p := range pairs {
		distances += p.DistanceCM
		if p.DistanceCM <= 0 {
			zap.L().Warn("scorer: skipping density term for coincident faces",
				zap.Int("i", p.I),
				zap.Int("j", p.J),
			)
			continue
		}
		total += Severity(p.Pairing, cfg) / p.DistanceCM
	}

	n := float64(len(pairs))
	a.Status = model.StatusScored
	a.PairCount = len(pairs)
	a.AverageDistanceCM = distances / n
	a.DensityScore = total / n
	a.SafetyScore = a.DensityScore * 100
	a.Tier = Classify(a.DensityScore, cfg)
	a.Message = fmt.Sprintf("The safety score is %.4f, chance of contracting COVID: %s",
		a.SafetyScore, a.Tier.Words())

	return a
}

// Classify maps a density score to a risk tier. The very high, medium and low
// bounds are exclusive. The high bound is inclusive: a density equal to
// HighThreshold/ReferenceDistanceCM is high.
func Classify(density float64, cfg config.ScorerConfig) model.RiskTier {
	bound := func(threshold float64) float64 { return threshold / cfg.ReferenceDistanceCM }

	switch {
	case density > bound(cfg.VeryHighThreshold):
		return model.TierVeryHigh
	case density >= bound(cfg.HighThreshold)*(1-boundaryTolerance):
		return model.TierHigh
	case density > bound(cfg.MediumThreshold):
		return model.TierMedium
	case density > bound(cfg.LowThreshold):
		return model.TierLow
	default:
		return model.TierVeryLow
	}
}
