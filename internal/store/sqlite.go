package store

import (
	"context"
	"database/sql"
	"errors"
	"image"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rxhuang/fp-null-pointer/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS assessment_runs (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL,
	avg_face_width   REAL NOT NULL,
	config_hash      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	tier             TEXT NOT NULL DEFAULT '',
	assessment       TEXT NOT NULL,
	adoption         TEXT,
	after_assessment TEXT,
	faces            TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
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
	distance_cm REAL NOT NULL,
	pairing     TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_assessment_runs_tier ON assessment_runs(tier);
CREATE INDEX IF NOT EXISTS idx_assessment_runs_source ON assessment_runs(source);
CREATE INDEX IF NOT EXISTS idx_assessment_runs_created_at ON assessment_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.AssessmentRun) error {
	prepareRun(run)

	docs, err := encodeRun(run)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO assessment_runs
			(id, source, avg_face_width, config_hash, status, tier, assessment, adoption, after_assessment, faces, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.AvgFaceWidth, run.ConfigHash,
		string(run.Assessment.Status), string(run.Assessment.Tier),
		string(docs.assessment), nullString(docs.adoption), nullString(docs.after),
		nullString(docs.faces), run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	if len(run.Pairs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO assessment_pairs (`+strings.Join(pairColumns, ", ")+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return eris.Wrap(err, "sqlite: prepare pair insert")
		}
		defer stmt.Close()

		for seq, p := range run.Pairs {
			if _, err := stmt.ExecContext(ctx, pairRow(run.ID, seq, p)...); err != nil {
				return eris.Wrapf(err, "sqlite: insert pair %d for run %s", seq, run.ID)
			}
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.AssessmentRun, error) {
	row := s.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT face_i, face_j, center_a_x, center_a_y, center_b_x, center_b_y, distance_cm, pairing
		FROM assessment_pairs WHERE run_id = ? ORDER BY seq`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query pairs for run %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		run.Pairs = append(run.Pairs, p)
	}
	return run, eris.Wrap(rows.Err(), "sqlite: iterate pairs")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.AssessmentRun, error) {
	query := runSelect + ` WHERE 1=1`
	var args []any

	if filter.Tier != model.TierNone {
		query += ` AND tier = ?`
		args = append(args, string(filter.Tier))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.AssessmentRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.AssessmentRun, error) {
	var r model.AssessmentRun
	var assessment string
	var adoption, after, faces sql.NullString

	err := row.Scan(&r.ID, &r.Source, &r.AvgFaceWidth, &r.ConfigHash, &assessment, &adoption, &after, &faces, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	docs := runDocs{assessment: []byte(assessment)}
	if adoption.Valid {
		docs.adoption = []byte(adoption.String)
	}
	if after.Valid {
		docs.after = []byte(after.String)
	}
	if faces.Valid {
		docs.faces = []byte(faces.String)
	}
	if err := docs.decodeInto(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanPair(row scannable) (model.PairDistance, error) {
	var p model.PairDistance
	var pairing string
	var a, b image.Point

	err := row.Scan(&p.I, &p.J, &a.X, &a.Y, &b.X, &b.Y, &p.DistanceCM, &pairing)
	if err != nil {
		return p, eris.Wrap(err, "store: scan pair")
	}
	p.CenterA, p.CenterB = a, b
	p.Pairing = model.Pairing(pairing)
	return p, nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
