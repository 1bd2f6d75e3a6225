package scorer

import (
	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// Run converts r into a persistable run. ID and CreatedAt are left for the
// store to fill in.
func (r *Result) Run(source string, cfg config.ScorerConfig) *model.AssessmentRun {
	return &model.AssessmentRun{
		Source:       source,
		AvgFaceWidth: cfg.AvgFaceWidth,
		ConfigHash:   ConfigHash(cfg),
		Assessment:   r.Assessment,
		Pairs:        r.Pairs,
		Faces:        r.Faces,
	}
}

// Run converts the counterfactual into a persistable run. The faces and
// pairs stored are the ones of the before assessment.
func (c *Counterfactual) Run(source string, cfg config.ScorerConfig) *model.AssessmentRun {
	run := c.Before.Run(source, cfg)
	adoption := c.Adoption
	after := c.After.Assessment
	run.Adoption = &adoption
	run.After = &after
	return run
}
