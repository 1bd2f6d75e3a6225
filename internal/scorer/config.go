// Package scorer turns estimated pair distances into a severity-weighted
// density score and a discrete risk tier.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/proximity"
)

// ReferenceDistanceCM is six feet in centimeters, the distance the tier
// thresholds are expressed against.
const ReferenceDistanceCM = 182.88

// DefaultScorerConfig returns a config.ScorerConfig with the calibrated
// defaults. Severities and thresholds are empirical constants.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		AvgFaceWidth:        proximity.DefaultAvgFaceWidth,
		ReferenceDistanceCM: ReferenceDistanceCM,

		// Severity per pair, by how many of its faces are masked.
		SeverityBothMasked: 1,
		SeverityOneMasked:  3,
		SeverityNoneMasked: 6,

		// Tier thresholds, in severity units per reference distance.
		VeryHighThreshold: 12,
		HighThreshold:     9,
		MediumThreshold:   6,
		LowThreshold:      4,
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	if !(c.AvgFaceWidth > 0) || math.IsInf(c.AvgFaceWidth, 0) {
		errs = append(errs, "avg_face_width must be > 0")
	}
	if !(c.ReferenceDistanceCM > 0) {
		errs = append(errs, "reference_distance_cm must be > 0")
	}

	severities := []struct {
		name  string
		value float64
	}{
		{"severity_both_masked", c.SeverityBothMasked},
		{"severity_one_masked", c.SeverityOneMasked},
		{"severity_none_masked", c.SeverityNoneMasked},
	}
	for _, s := range severities {
		if s.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", s.name))
		}
	}

	if c.LowThreshold <= 0 {
		errs = append(errs, "low_threshold must be > 0")
	}
	if !(c.VeryHighThreshold > c.HighThreshold &&
		c.HighThreshold > c.MediumThreshold &&
		c.MediumThreshold > c.LowThreshold) {
		errs = append(errs, "thresholds must be strictly decreasing from very_high to low")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Severity returns the configured weight for a pairing.
func Severity(p model.Pairing, c config.ScorerConfig) float64 {
	switch p {
	case model.PairingBothMasked:
		return c.SeverityBothMasked
	case model.PairingOneMasked:
		return c.SeverityOneMasked
	default:
		return c.SeverityNoneMasked
	}
}

func proximityOptions(c config.ScorerConfig) proximity.Options {
	return proximity.Options{
		AvgFaceWidth:   c.AvgFaceWidth,
		ShareEndpoints: c.ShareEndpoints,
	}
}
