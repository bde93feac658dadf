package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore mirrors runs and logs to Postgres. It stores request
// history for operators; build artifacts and caches never touch it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(conn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", conn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS sketch_runs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    detail TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ,
    error TEXT
);
CREATE TABLE IF NOT EXISTS sketch_run_logs (
    id BIGSERIAL PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES sketch_runs(id) ON DELETE CASCADE,
    line TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) Create(run Run) error {
	query := `INSERT INTO sketch_runs (id, kind, detail, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
    kind = EXCLUDED.kind,
    detail = EXCLUDED.detail,
    status = EXCLUDED.status,
    updated_at = EXCLUDED.updated_at`
	_, err := s.db.Exec(query,
		run.ID,
		run.Kind,
		run.Detail,
		run.Status,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) UpdateStatus(id string, status Status, finishedAt *time.Time, errMsg string) error {
	query := `UPDATE sketch_runs SET status=$1, updated_at=$2, finished_at=$3, error=$4 WHERE id=$5`
	_, err := s.db.Exec(query, status, time.Now().UTC(), finishedAt, errMsg, id)
	return err
}

func (s *PostgresStore) AppendLog(id string, line string) error {
	_, err := s.db.Exec(`INSERT INTO sketch_run_logs (run_id, line) VALUES ($1,$2)`, id, line)
	return err
}

func (s *PostgresStore) List() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, kind, detail, status, created_at, updated_at, finished_at, error FROM sketch_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Get(id string) (Run, error) {
	row := s.db.QueryRow(`SELECT id, kind, detail, status, created_at, updated_at, finished_at, error FROM sketch_runs WHERE id=$1`, id)
	return scanRun(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var finishedAt sql.NullTime
	var errMsg sql.NullString
	if err := row.Scan(&run.ID, &run.Kind, &run.Detail, &run.Status, &run.CreatedAt, &run.UpdatedAt, &finishedAt, &errMsg); err != nil {
		return Run{}, err
	}
	if finishedAt.Valid {
		finished := finishedAt.Time
		run.FinishedAt = &finished
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

func (s *PostgresStore) ListLogs(id string, limit int) ([]string, error) {
	rows, err := s.db.Query(`SELECT line FROM sketch_run_logs WHERE run_id=$1 ORDER BY id ASC LIMIT $2`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
