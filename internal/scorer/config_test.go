package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
)

func TestDefaultScorerConfig_Valid(t *testing.T) {
	t.Parallel()

	cfg := DefaultScorerConfig()
	require.NoError(t, ValidateConfig(cfg))

	assert.InDelta(t, 20.0, cfg.AvgFaceWidth, 1e-9)
	assert.InDelta(t, 182.88, cfg.ReferenceDistanceCM, 1e-9)
	assert.False(t, cfg.ShareEndpoints)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.ScorerConfig)
		wantErr string
	}{
		{"zero face width", func(c *config.ScorerConfig) { c.AvgFaceWidth = 0 }, "avg_face_width must be > 0"},
		{"negative face width", func(c *config.ScorerConfig) { c.AvgFaceWidth = -3 }, "avg_face_width must be > 0"},
		{"NaN face width", func(c *config.ScorerConfig) { c.AvgFaceWidth = math.NaN() }, "avg_face_width must be > 0"},
		{"zero reference", func(c *config.ScorerConfig) { c.ReferenceDistanceCM = 0 }, "reference_distance_cm must be > 0"},
		{"negative severity", func(c *config.ScorerConfig) { c.SeverityNoneMasked = -6 }, "severity_none_masked must be >= 0"},
		{"thresholds out of order", func(c *config.ScorerConfig) { c.MediumThreshold = 10 }, "strictly decreasing"},
		{"equal thresholds", func(c *config.ScorerConfig) { c.HighThreshold = 12 }, "strictly decreasing"},
		{"zero low threshold", func(c *config.ScorerConfig) { c.LowThreshold = 0 }, "low_threshold must be > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultScorerConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "scorer: config validation failed")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateConfig_ReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := DefaultScorerConfig()
	cfg.AvgFaceWidth = 0
	cfg.SeverityBothMasked = -1

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "avg_face_width")
	assert.Contains(t, err.Error(), "severity_both_masked")
}

func TestSeverity(t *testing.T) {
	t.Parallel()

	cfg := DefaultScorerConfig()
	assert.InDelta(t, 1.0, Severity(model.PairingBothMasked, cfg), 1e-9)
	assert.InDelta(t, 3.0, Severity(model.PairingOneMasked, cfg), 1e-9)
	assert.InDelta(t, 6.0, Severity(model.PairingNoneMasked, cfg), 1e-9)
}

func TestConfigHash(t *testing.T) {
	t.Parallel()

	a := DefaultScorerConfig()
	b := DefaultScorerConfig()
	assert.Equal(t, ConfigHash(a), ConfigHash(b))
	assert.Len(t, ConfigHash(a), 32)

	b.AvgFaceWidth = 24
	assert.NotEqual(t, ConfigHash(a), ConfigHash(b))
}
