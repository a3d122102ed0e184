// Package funds abstracts the value-settlement mechanism the marketplace
// moves money through. Amounts are denominated in the smallest unit of
// the host currency and compared exactly.
package funds

import (
	"context"
	"errors"

	"github.com/holiman/uint256"
	"github.com/nftrack/nftrack/internal/token"
)

var (
	// ErrInsufficientFunds indicates the paying account cannot cover the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount indicates a missing or zero amount.
	ErrInvalidAmount = errors.New("amount must be greater than 0")
)

// Vault is the settlement engine's view of the host value-settlement
// mechanism. Collect pulls the value attached to a payment before any
// marketplace state is written; Disburse pays a claimed share out. Both
// either move the full amount or fail without moving anything.
type Vault interface {
	Collect(ctx context.Context, from token.Address, amount *uint256.Int) error
	Disburse(ctx context.Context, to token.Address, amount *uint256.Int) error
}
