package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	domai "github.com/tether007/GreenChainAdvisory/internal/domain/ai"
	domain "github.com/tether007/GreenChainAdvisory/internal/domain/analysis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/diagnosis"
	"github.com/tether007/GreenChainAdvisory/internal/domain/ledger"
)

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Service implements the analysis use-cases. It sequences payment,
// inference, normalization and persistence for one request at a time; the
// only shared state between concurrent requests is the repository.
// Safe for concurrent use.
type Service struct {
	Records domain.Repository
	Ledger  ledger.Coordinator
	AI      domai.Client
	Images  domain.ImageStore
	Clock   Clock

	// InferenceTimeout bounds the model call. The pipeline is fail-fast:
	// no retry, the caller resubmits. Zero means DefaultInferenceTimeout.
	InferenceTimeout time.Duration

	// OnFallback, when set, is invoked each time a result came from the
	// deterministic fallback rather than a parsed model response.
	OnFallback func()
}

const DefaultInferenceTimeout = 90 * time.Second

//
// ==== USE CASES ====
//

// PaymentResult is returned when the relayer pays on the caller's behalf.
type PaymentResult struct {
	CorrelationID string   `json:"correlation_id"`
	PriceWei      *big.Int `json:"price_wei"`
}

// Price reads the current analysis fee from the ledger contract.
func (s *Service) Price(ctx context.Context) (*big.Int, error) {
	return s.Ledger.Price(ctx)
}

// RequestPayment submits the analysis fee through the coordinator and
// creates the pending record keyed by the event-assigned correlation id.
// The reported price is the amount the coordinator attached to the
// transaction, not a separate read that could race a fee change.
// The on-chain spend happens before the record exists, so a duplicate id
// from a retried submission is surfaced, never silently overwritten.
func (s *Service) RequestPayment(ctx context.Context, owner, fingerprint string) (PaymentResult, error) {
	if strings.TrimSpace(owner) == "" {
		return PaymentResult{}, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(fingerprint) == "" {
		return PaymentResult{}, fmt.Errorf("%w: fingerprint is required", domain.ErrInvalidInput)
	}

	id, price, err := s.Ledger.RequestAnalysis(ctx, owner, fingerprint)
	if err != nil {
		return PaymentResult{}, err
	}

	rec := &domain.Record{
		CorrelationID: domain.CorrelationID(id),
		Owner:         owner,
		Fingerprint:   fingerprint,
		CreatedAt:     s.Clock.Now(),
	}
	if err := s.Records.CreatePending(ctx, rec); err != nil {
		return PaymentResult{}, err
	}

	return PaymentResult{CorrelationID: id, PriceWei: price}, nil
}

// AnalyzeCommand carries one upload through the pipeline.
type AnalyzeCommand struct {
	CorrelationID string
	Owner         string
	Image         []byte
	MimeType      string
}

// Analyze runs hash → pending record → inference → normalize → complete.
// The image is spooled to a temp file for archiving; removal of that file is
// unconditional, whichever step fails. On failure after the pending record
// exists the record stays pending and the error propagates to the caller.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*domain.Record, error) {
	if err := validateAnalyze(cmd); err != nil {
		return nil, err
	}

	fingerprint := domain.Fingerprint(cmd.Image)
	id := domain.CorrelationID(cmd.CorrelationID)
	now := s.Clock.Now()

	// The record may already exist when payment went through RequestPayment
	// or a prior upload attempt; otherwise the client paid through its own
	// wallet and this is the first time we see the id.
	rec := &domain.Record{
		CorrelationID: id,
		Owner:         cmd.Owner,
		Fingerprint:   fingerprint,
		CreatedAt:     now,
	}
	if err := s.Records.CreatePending(ctx, rec); err != nil {
		if !errors.Is(err, domain.ErrDuplicateID) {
			return nil, err
		}
		existing, gerr := s.Records.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if existing.Completed() {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, id)
		}
		if existing.Owner != cmd.Owner {
			return nil, fmt.Errorf("%w: correlation id belongs to another owner", domain.ErrInvalidInput)
		}
		// The fingerprint committed at payment time is authoritative; an
		// upload that hashes differently is a different image.
		if existing.Fingerprint != fingerprint {
			return nil, fmt.Errorf("%w: image does not match the paid fingerprint", domain.ErrInvalidInput)
		}
		rec = existing
	}

	// Spool the upload so the archive store works from a local path. Cleanup
	// must run on every exit path; UploadAndCleanup removes the file on the
	// happy path and the deferred remove covers the rest.
	tmp, err := os.CreateTemp("", "greenchain-"+uuid.New().String()+"-*")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(cmd.Image); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	timeout := s.InferenceTimeout
	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := s.AI.Diagnose(ictx, cmd.Image, cmd.MimeType)
	if err != nil {
		return nil, err
	}

	result, fellBack := diagnosis.Normalize(raw)
	if fellBack {
		log.Printf("analysis %s: model output not parseable, fallback result recorded", id)
		if s.OnFallback != nil {
			s.OnFallback()
		}
	}

	key := fmt.Sprintf("%s/%s", cmd.Owner, fingerprint)
	imageURL, err := s.Images.UploadAndCleanup(ctx, tmpPath, key)
	if err != nil {
		return nil, err
	}

	completedAt := s.Clock.Now()
	if err := s.Records.Complete(ctx, id, result, imageURL, completedAt); err != nil {
		return nil, err
	}

	rec.Diagnosis = result.Diagnosis
	rec.Advice = result.Advice
	rec.Severity = result.Severity
	rec.Confidence = &result.Confidence
	rec.ImageURL = imageURL
	rec.CompletedAt = &completedAt
	return rec, nil
}

// History returns all records for an owner, newest first.
func (s *Service) History(ctx context.Context, owner string) ([]*domain.Record, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	return s.Records.ListByOwner(ctx, owner)
}

// Get ambil 1 record by correlation id
func (s *Service) Get(ctx context.Context, id string) (*domain.Record, error) {
	return s.Records.Get(ctx, domain.CorrelationID(id))
}

const MaxImageBytes = 10 << 20

func validateAnalyze(cmd AnalyzeCommand) error {
	if strings.TrimSpace(cmd.CorrelationID) == "" {
		return fmt.Errorf("%w: correlation_id is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(cmd.Owner) == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	if len(cmd.Image) == 0 {
		return fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
	}
	if len(cmd.Image) > MaxImageBytes {
		return fmt.Errorf("%w: image exceeds 10 MiB", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(cmd.MimeType, "image/") {
		return fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidInput, cmd.MimeType)
	}
	return nil
}
