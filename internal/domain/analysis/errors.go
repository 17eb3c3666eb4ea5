package analysis

import "errors"

// ErrDuplicateID indicates a record already exists for the correlation id.
// Duplicate creation never overwrites the existing record.
var ErrDuplicateID = errors.New("analysis record already exists")

// ErrNotFound indicates no pending record exists for the correlation id.
// A completion that raced and lost also surfaces as ErrNotFound.
var ErrNotFound = errors.New("analysis record not found")

// ErrInvalidInput rejects malformed requests before any external call.
var ErrInvalidInput = errors.New("invalid input")
