package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	after := model.RiskAssessment{Status: model.StatusScored, Tier: model.TierLow}
	runs := []model.AssessmentRun{
		{
			ID:     "abc12345-6789-0000-0000-000000000000",
			Source: "street.json",
			Assessment: model.RiskAssessment{
				Status: model.StatusScored, FaceCount: 2, SafetyScore: 15, Tier: model.TierVeryHigh,
			},
			After:     &after,
			CreatedAt: now,
		},
		{
			ID:     "def12345-6789-0000-0000-000000000000",
			Source: "/very/long/path/to/some/detector/output/hall.csv",
			Assessment: model.RiskAssessment{
				Status: model.StatusSingleFace, FaceCount: 1, Tier: model.TierVeryLow,
			},
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "street.json")
	assert.Contains(t, out, "15.0000")
	assert.Contains(t, out, "Very High")
	assert.Contains(t, out, "Low")
	assert.Contains(t, out, "Very Low")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "hall.csv")
	assert.Contains(t, out, "2026-06-15 10:30")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
