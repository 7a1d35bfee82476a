package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the history table DDL. Reports are stored whole as JSONB
// next to the columns queried directly; rows are never updated or deleted.
const schema = `
CREATE TABLE IF NOT EXISTS exposure_reports (
    id                  TEXT PRIMARY KEY,
    subject_fingerprint TEXT NOT NULL,
    dvs                 DOUBLE PRECISION NOT NULL,
    generated_at        TIMESTAMPTZ NOT NULL,
    payload             JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS exposure_reports_subject_idx
    ON exposure_reports (subject_fingerprint, generated_at);
`

// PostgresStore persists reports in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgreSQL-backed report store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the history table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure report schema: %w", err)
	}
	return nil
}

// Save appends a completed report.
func (s *PostgresStore) Save(ctx context.Context, r *ExposureReport) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("save report: missing id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report %s: %w", r.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exposure_reports (id, subject_fingerprint, dvs, generated_at, payload)
		 VALUES ($1, $2, $3, $4, $5)`,
		r.ID, r.SubjectFingerprint, r.DVS, r.GeneratedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

// Find retrieves a report by ID.
func (s *PostgresStore) Find(ctx context.Context, id string) (*ExposureReport, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM exposure_reports WHERE id = $1`, id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find report %s: %w", id, err)
	}
	return unmarshalReport(payload)
}

// ListBySubject returns a subject's scan history, oldest first.
func (s *PostgresStore) ListBySubject(ctx context.Context, fingerprint string) ([]*ExposureReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM exposure_reports
		 WHERE subject_fingerprint = $1
		 ORDER BY generated_at`, fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("list reports for subject: %w", err)
	}
	defer rows.Close()

	var out []*ExposureReport
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		r, err := unmarshalReport(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return out, nil
}

func unmarshalReport(payload []byte) (*ExposureReport, error) {
	var r ExposureReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report payload: %w", err)
	}
	return &r, nil
}
