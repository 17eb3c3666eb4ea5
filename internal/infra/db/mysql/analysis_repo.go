package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
)

const mysqlErrDuplicateEntry = 1062

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// CreatePending inserts the pending row. A plain INSERT, never an upsert:
// the correlation id is immutable and an existing row must not be touched.
func (r *AnalysisRepository) CreatePending(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO analyses (correlation_id, owner, image_fingerprint, created_at)
VALUES (?,?,?,?);
`
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, rec.CorrelationID, rec.Owner, rec.Fingerprint, created)
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry {
		return domain.ErrDuplicateID
	}
	return err
}

// Complete writes all result fields and completed_at in one statement,
// guarded by completed_at IS NULL so a second completion for the same id
// affects zero rows and reports ErrNotFound.
func (r *AnalysisRepository) Complete(ctx context.Context, id domain.CorrelationID, res diagnosis.Result, imageURL string, at time.Time) error {
	const q = `
UPDATE analyses
SET diagnosis=?, advice=?, severity=?, confidence=?, image_url=?, completed_at=?
WHERE correlation_id=? AND completed_at IS NULL;
`
	result, err := r.db.ExecContext(ctx, q,
		res.Diagnosis, res.Advice, string(res.Severity), res.Confidence, imageURL, at, id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get by correlation id
func (r *AnalysisRepository) Get(ctx context.Context, id domain.CorrelationID) (*domain.Record, error) {
	const q = selectColumns + `
WHERE correlation_id=? LIMIT 1;
`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// ListByOwner returns every record for an owner, newest first.
func (r *AnalysisRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Record, error) {
	const q = selectColumns + `
WHERE owner=? ORDER BY created_at DESC, correlation_id DESC;
`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectColumns = `
SELECT correlation_id, owner, image_fingerprint,
       diagnosis, advice, severity, confidence, image_url,
       created_at, completed_at
FROM analyses`
