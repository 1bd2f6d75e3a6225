// Package store persists assessment runs to SQLite or Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// defaultListLimit caps ListRuns when the filter sets no limit.
const defaultListLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Tier   model.RiskTier `json:"tier,omitempty"`
	Source string         `json:"source,omitempty"`
	Limit  int            `json:"limit,omitempty"`
	Offset int            `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for assessment runs.
type Store interface {
	// SaveRun inserts run and its pairs. An empty ID or zero CreatedAt is
	// filled in before insert.
	SaveRun(ctx context.Context, run *model.AssessmentRun) error
	// GetRun returns a run with its pairs, or a *NotFoundError.
	GetRun(ctx context.Context, id string) (*model.AssessmentRun, error)
	// ListRuns returns runs newest first, without pairs.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AssessmentRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

// NotFoundError is returned when a run does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("run not found: %s", e.ID)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

func prepareRun(run *model.AssessmentRun) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}

// runSelect lists the assessment_runs columns read back by both backends.
const runSelect = `SELECT id, source, avg_face_width, config_hash, assessment, adoption, after_assessment, faces, created_at FROM assessment_runs`

var pairColumns = []string{
	"run_id", "seq", "face_i", "face_j",
	"center_a_x", "center_a_y", "center_b_x", "center_b_y",
	"distance_cm", "pairing",
}

func pairRow(runID string, seq int, p model.PairDistance) []any {
	return []any{
		runID, seq, p.I, p.J,
		p.CenterA.X, p.CenterA.Y, p.CenterB.X, p.CenterB.Y,
		p.DistanceCM, string(p.Pairing),
	}
}
