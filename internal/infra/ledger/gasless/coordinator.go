package gasless

import (
	"context"
	"fmt"
	"math/big"

	"github.com/tether007/GreenChainAdvisory/internal/domain/ledger"
)

// Coordinator is the declared-but-unbuilt sponsored-transaction path. It
// satisfies ledger.Coordinator so it can replace the EVM coordinator without
// touching callers; every call reports the capability gap explicitly.
type Coordinator struct{}

func New() *Coordinator { return &Coordinator{} }

func (*Coordinator) Price(context.Context) (*big.Int, error) {
	return nil, fmt.Errorf("%w: gasless price lookup", ledger.ErrNotImplemented)
}

func (*Coordinator) RequestAnalysis(context.Context, string, string) (string, *big.Int, error) {
	return "", nil, fmt.Errorf("%w: gasless payment", ledger.ErrNotImplemented)
}
