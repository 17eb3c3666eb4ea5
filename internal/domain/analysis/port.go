package analysis

import (
	"context"
	"time"

	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
)

// Repository port (interface untuk persistence)
type Repository interface {
	// CreatePending inserts a new pending record. Returns ErrDuplicateID if
	// a record already exists for the correlation id.
	CreatePending(ctx context.Context, rec *Record) error

	// Complete sets the diagnosis fields, image URL and completion time in a
	// single atomic write. Returns ErrNotFound when no pending record exists
	// for the id; a record that is already completed is not touched.
	Complete(ctx context.Context, id CorrelationID, res diagnosis.Result, imageURL string, at time.Time) error

	Get(ctx context.Context, id CorrelationID) (*Record, error)

	// ListByOwner returns every record for the owner, newest first,
	// pending and completed alike.
	ListByOwner(ctx context.Context, owner string) ([]*Record, error)
}

// ImageStore port (interface untuk penyimpanan artefak gambar)
type ImageStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
}
