package funds

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	"github.com/nftrack/nftrack/internal/token"
)

// Tally is a vault for deployments where value moves out of band (for
// example, on-chain or through an external payment processor). It
// accepts every collect and disburse and only tracks running totals.
type Tally struct {
	mu        sync.Mutex
	collected uint256.Int
	disbursed uint256.Int
}

// NewTally creates a zeroed tally vault.
func NewTally() *Tally {
	return &Tally{}
}

// Collect records the inbound amount.
func (t *Tally) Collect(ctx context.Context, from token.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == token.None {
		return token.ErrEmptyAddress
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	(&t.collected).Add(&t.collected, amount)
	return nil
}

// Disburse records the outbound amount.
func (t *Tally) Disburse(ctx context.Context, to token.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == token.None {
		return token.ErrEmptyAddress
	}
	if amount == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	(&t.disbursed).Add(&t.disbursed, amount)
	return nil
}

// Collected returns the total value collected so far.
func (t *Tally) Collected() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return (&t.collected).Clone()
}

// Disbursed returns the total value disbursed so far.
func (t *Tally) Disbursed() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return (&t.disbursed).Clone()
}

var _ Vault = (*Tally)(nil)
