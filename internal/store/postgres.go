package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/db"
	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS assessment_runs (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source           TEXT NOT NULL,
	avg_face_width   DOUBLE PRECISION NOT NULL,
	config_hash      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	tier             TEXT NOT NULL DEFAULT '',
	assessment       JSONB NOT NULL,
	adoption         JSONB,
	after_assessment JSONB,
	faces            JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assessment_pairs (
	run_id      TEXT NOT NULL REFERENCES assessment_runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	face_i      INTEGER NOT NULL,
	face_j      INTEGER NOT NULL,
	center_a_x  INTEGER NOT NULL,
	center_a_y  INTEGER NOT NULL,
	center_b_x  INTEGER NOT NULL,
	center_b_y  INTEGER NOT NULL,
	distance_cm DOUBLE PRECISION NOT NULL,
	pairing     TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_assessment_runs_tier ON assessment_runs(tier);
CREATE INDEX IF NOT EXISTS idx_assessment_runs_source ON assessment_runs(source);
CREATE INDEX IF NOT EXISTS idx_assessment_runs_created_at ON assessment_runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun inserts the run row and copies its pairs in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run *model.AssessmentRun) error {
	prepareRun(run)

	docs, err := encodeRun(run)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO assessment_runs
			(id, source, avg_face_width, config_hash, status, tier, assessment, adoption, after_assessment, faces, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, run.ID, run.Source, run.AvgFaceWidth, run.ConfigHash,
		string(run.Assessment.Status), string(run.Assessment.Tier),
		docs.assessment, docs.adoption, docs.after, docs.faces, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	rows := make([][]any, len(run.Pairs))
	for seq, p := range run.Pairs {
		rows[seq] = pairRow(run.ID, seq, p)
	}
	if _, err := db.CopyFrom(ctx, tx, "assessment_pairs", pairColumns, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy pairs for run %s", run.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit run")
	}

	zap.L().Debug("postgres: saved run",
		zap.String("id", run.ID),
		zap.Int("pairs", len(run.Pairs)),
	)
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.AssessmentRun, error) {
	var r model.AssessmentRun
	var docs runDocs

	err := s.pool.QueryRow(ctx, runSelect+` WHERE id = $1`, id).
		Scan(&r.ID, &r.Source, &r.AvgFaceWidth, &r.ConfigHash, &docs.assessment, &docs.adoption, &docs.after, &docs.faces, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}
	if err := docs.decodeInto(&r); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT face_i, face_j, center_a_x, center_a_y, center_b_x, center_b_y, distance_cm, pairing FROM assessment_pairs WHERE run_id = $1 ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query pairs for run %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		r.Pairs = append(r.Pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate pairs")
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AssessmentRun, error) {
	query := runSelect + ` WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Tier != model.TierNone {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, string(filter.Tier))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.AssessmentRun
	for rows.Next() {
		var r model.AssessmentRun
		var docs runDocs
		if err := rows.Scan(&r.ID, &r.Source, &r.AvgFaceWidth, &r.ConfigHash, &docs.assessment, &docs.adoption, &docs.after, &docs.faces, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := docs.decodeInto(&r); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate runs")
	}
	return runs, nil
}
