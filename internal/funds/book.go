package funds

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	"github.com/nftrack/nftrack/internal/token"
)

// Book is an in-memory account-balance vault. Collect debits the paying
// account and holds the value; Disburse credits the receiving account
// from the held value. Accounts are funded through Credit.
type Book struct {
	mu       sync.Mutex
	balances map[token.Address]uint256.Int
	held     uint256.Int
}

// NewBook creates an empty vault.
func NewBook() *Book {
	return &Book{balances: make(map[token.Address]uint256.Int)}
}

// Credit funds an account, e.g. to seed buyers in tests and demos.
func (b *Book) Credit(addr token.Address, amount *uint256.Int) error {
	if addr == token.None {
		return token.ErrEmptyAddress
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	balance := b.balances[addr]
	(&balance).Add(&balance, amount)
	b.balances[addr] = balance
	return nil
}

// Balance returns the current balance of an account.
func (b *Book) Balance(addr token.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	balance := b.balances[addr]
	return (&balance).Clone()
}

// Held returns the total value collected but not yet disbursed.
func (b *Book) Held() *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return (&b.held).Clone()
}

// Collect debits the paying account and holds the amount.
func (b *Book) Collect(ctx context.Context, from token.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == token.None {
		return token.ErrEmptyAddress
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	balance := b.balances[from]
	if (&balance).Lt(amount) {
		return ErrInsufficientFunds
	}
	(&balance).Sub(&balance, amount)
	b.balances[from] = balance
	(&b.held).Add(&b.held, amount)
	return nil
}

// Disburse credits the receiving account from held value. A zero amount
// is a no-op: a fee of 0 is a legal outcome of the truncating split.
func (b *Book) Disburse(ctx context.Context, to token.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == token.None {
		return token.ErrEmptyAddress
	}
	if amount == nil || amount.IsZero() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if (&b.held).Lt(amount) {
		return ErrInsufficientFunds
	}
	(&b.held).Sub(&b.held, amount)
	balance := b.balances[to]
	(&balance).Add(&balance, amount)
	b.balances[to] = balance
	return nil
}

var _ Vault = (*Book)(nil)
