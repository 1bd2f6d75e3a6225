package store

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRun(source string, tier model.RiskTier, created time.Time) *model.AssessmentRun {
	return &model.AssessmentRun{
		Source:       source,
		AvgFaceWidth: 20,
		ConfigHash:   "abc123",
		Assessment: model.RiskAssessment{
			Status:            model.StatusScored,
			FaceCount:         2,
			PairCount:         1,
			AverageDistanceCM: 40,
			DensityScore:      0.15,
			SafetyScore:       15,
			Tier:              tier,
			Message:           "The safety score is 15.0000",
		},
		Pairs: []model.PairDistance{{
			I: 1, J: 0,
			CenterA:    image.Point{X: 350, Y: 75},
			CenterB:    image.Point{X: 50, Y: 75},
			DistanceCM: 40,
			Pairing:    model.PairingNoneMasked,
		}},
		Faces: []model.FaceRecord{
			model.FromSignedConfidence(model.Bounds{X1: 0, Y1: 0, X2: 100, Y2: 150}, -90),
			model.FromSignedConfidence(model.Bounds{X1: 300, Y1: 0, X2: 400, Y2: 150}, -80),
		},
		CreatedAt: created,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun("crowd.json", model.TierVeryHigh, time.Time{})
		require.NoError(t, s.SaveRun(ctx, run))
		assert.NotEmpty(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "crowd.json", got.Source)
		assert.InDelta(t, 20.0, got.AvgFaceWidth, 1e-9)
		assert.Equal(t, "abc123", got.ConfigHash)
		assert.Equal(t, run.Assessment, got.Assessment)
		assert.Equal(t, run.Pairs, got.Pairs)
		assert.Equal(t, run.Faces, got.Faces)
		assert.Nil(t, got.Adoption)
		assert.Nil(t, got.After)
		assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("SaveCounterfactual", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun("whatif.json", model.TierVeryHigh, time.Time{})
		after := run.Assessment
		after.Tier = model.TierLow
		after.DensityScore = 0.025
		run.After = &after
		run.Adoption = &model.MaskAdoption{Flipped: 2, PercentageIncrease: 100}

		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Adoption)
		require.NotNil(t, got.After)
		assert.Equal(t, 2, got.Adoption.Flipped)
		assert.Equal(t, model.TierLow, got.After.Tier)
	})

	t.Run("SaveWithoutPairs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &model.AssessmentRun{
			Source:       "single.json",
			AvgFaceWidth: 20,
			Assessment: model.RiskAssessment{
				Status:    model.StatusSingleFace,
				FaceCount: 1,
				Tier:      model.TierVeryLow,
			},
		}
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Pairs)
		assert.Equal(t, model.StatusSingleFace, got.Assessment.Status)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetRun(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("ListRunsFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		tiers := []model.RiskTier{model.TierHigh, model.TierLow, model.TierHigh, model.TierVeryLow}
		for i, tier := range tiers {
			source := "a.json"
			if i%2 == 1 {
				source = "b.json"
			}
			run := sampleRun(source, tier, base.Add(time.Duration(i)*time.Minute))
			run.ID = fmt.Sprintf("run-%d", i)
			require.NoError(t, s.SaveRun(ctx, run))
		}

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "run-3", all[0].ID, "newest first")
		assert.Equal(t, "run-0", all[3].ID)
		assert.Empty(t, all[0].Pairs, "list omits pairs")

		high, err := s.ListRuns(ctx, RunFilter{Tier: model.TierHigh})
		require.NoError(t, err)
		require.Len(t, high, 2)
		for _, r := range high {
			assert.Equal(t, model.TierHigh, r.Assessment.Tier)
		}

		b, err := s.ListRuns(ctx, RunFilter{Source: "b.json"})
		require.NoError(t, err)
		assert.Len(t, b, 2)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "run-2", page[0].ID)
		assert.Equal(t, "run-1", page[1].ID)

		none, err := s.ListRuns(ctx, RunFilter{Tier: model.TierVeryHigh})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := sampleRun("dup.json", model.TierLow, time.Time{})
		run.ID = "fixed"
		require.NoError(t, s.SaveRun(ctx, run))

		again := sampleRun("dup.json", model.TierLow, time.Time{})
		again.ID = "fixed"
		assert.Error(t, s.SaveRun(ctx, again))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "open.db")
	s, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	run := sampleRun("open.json", model.TierMedium, time.Time{})
	require.NoError(t, s.SaveRun(context.Background(), run))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&NotFoundError{ID: "x"}))
	assert.True(t, IsNotFound(fmt.Errorf("api: %w", &NotFoundError{ID: "x"})))
	assert.False(t, IsNotFound(fmt.Errorf("other")))
	assert.False(t, IsNotFound(nil))
}
