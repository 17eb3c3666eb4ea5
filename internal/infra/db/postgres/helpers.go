package postgres

import (
	"database/sql"

	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord maps one analyses row onto a Record; nullable result columns
// stay nil while the record is pending.
func scanRecord(row rowScanner) (*domain.Record, error) {
	var (
		rec        domain.Record
		diag       sql.NullString
		advice     sql.NullString
		severity   sql.NullString
		confidence sql.NullFloat64
		imageURL   sql.NullString
		completed  sql.NullTime
	)
	if err := row.Scan(
		&rec.CorrelationID, &rec.Owner, &rec.Fingerprint,
		&diag, &advice, &severity, &confidence, &imageURL,
		&rec.CreatedAt, &completed,
	); err != nil {
		return nil, err
	}
	if completed.Valid { t := completed.Time; rec.CompletedAt = &t }
	if diag.Valid { rec.Diagnosis = diag.String }
	if advice.Valid { rec.Advice = advice.String }
	if severity.Valid { rec.Severity = diagnosis.Severity(severity.String) }
	if confidence.Valid { v := confidence.Float64; rec.Confidence = &v }
	if imageURL.Valid { rec.ImageURL = imageURL.String }
	return &rec, nil
}
