package ledger

import (
	"context"
	"math/big"
)

// Coordinator submits the analysis fee to the advisory contract and returns
// the contract-assigned correlation id. The on-chain state change is
// irreversible once submitted; callers must stay idempotent when the same
// correlation id is observed more than once.
type Coordinator interface {
	// Price reads the current analysis fee in wei from the contract.
	Price(ctx context.Context) (*big.Int, error)

	// RequestAnalysis pays the fee on behalf of owner, carrying the image
	// fingerprint as payload, and extracts the correlation id from the
	// PaymentReceived event in the transaction receipt. The returned price
	// is the amount actually attached to the transaction; the fee is read
	// once and that read is authoritative, a separate Price call may
	// already disagree with it.
	RequestAnalysis(ctx context.Context, owner, fingerprint string) (id string, paid *big.Int, err error)
}
