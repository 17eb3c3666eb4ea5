package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
)

const pgErrUniqueViolation = "23505"

type AnalysisRepository struct { db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

// CreatePending inserts the pending row; unique violation maps to
// ErrDuplicateID and the existing row stays untouched.
func (r *AnalysisRepository) CreatePending(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO analyses (correlation_id, owner, image_fingerprint, created_at)
VALUES ($1,$2,$3,$4);`
	created := rec.CreatedAt
	if created.IsZero() { created = time.Now() }
	_, err := r.db.ExecContext(ctx, q, rec.CorrelationID, rec.Owner, rec.Fingerprint, created)
	var pe *pq.Error
	if errors.As(err, &pe) && string(pe.Code) == pgErrUniqueViolation {
		return domain.ErrDuplicateID
	}
	return err
}

// Complete writes the result atomically; zero affected rows means no pending
// record exists for the id.
func (r *AnalysisRepository) Complete(ctx context.Context, id domain.CorrelationID, res diagnosis.Result, imageURL string, at time.Time) error {
	const q = `
UPDATE analyses
SET diagnosis=$1, advice=$2, severity=$3, confidence=$4, image_url=$5, completed_at=$6
WHERE correlation_id=$7 AND completed_at IS NULL;`
	result, err := r.db.ExecContext(ctx, q,
		res.Diagnosis, res.Advice, string(res.Severity), res.Confidence, imageURL, at, id,
	)
	if err != nil { return err }
	n, err := result.RowsAffected()
	if err != nil { return err }
	if n == 0 { return domain.ErrNotFound }
	return nil
}

// Get by correlation id
func (r *AnalysisRepository) Get(ctx context.Context, id domain.CorrelationID) (*domain.Record, error) {
	const q = selectColumns + `
WHERE correlation_id=$1
LIMIT 1;`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// ListByOwner returns every record for an owner, newest first.
func (r *AnalysisRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Record, error) {
	const q = selectColumns + `
WHERE owner=$1 ORDER BY created_at DESC, correlation_id DESC;`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil { return nil, err }
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectColumns = `
SELECT correlation_id, owner, image_fingerprint,
	   diagnosis, advice, severity, confidence, image_url,
	   created_at, completed_at
FROM analyses`
