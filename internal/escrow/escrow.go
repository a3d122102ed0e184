// Package escrow implements a single-use, registry-free sale: one
// instance holds exactly one token and settles exactly one payment with
// the same fee split as the shared marketplace engine.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/nftrack/nftrack/internal/event"
	"github.com/nftrack/nftrack/internal/funds"
	"github.com/nftrack/nftrack/internal/market"
	"github.com/nftrack/nftrack/internal/token"
)

var (
	// ErrNoToken indicates payment before a token was deposited.
	ErrNoToken = errors.New("no token has been deposited")
	// ErrAlreadySold indicates the single sale has already settled.
	ErrAlreadySold = errors.New("the item has already been sold")
)

// Instance is one standalone escrow sale. The deployer becomes the
// seller; the instance's own address holds the deposited token until a
// buyer pays the exact price.
type Instance struct {
	mu     sync.Mutex
	addr   token.Address
	seller token.Address
	admin  token.Address
	price  uint256.Int

	paid       bool
	tokenAdded bool
	tokenID    token.ID
	payment    uint256.Int
	fee        uint256.Int

	paymentClaimed bool
	feeClaimed     bool

	ledger token.Ledger
	vault  funds.Vault
	events event.Emitter
}

// New creates an escrow instance for one sale at the given price. The
// emitter may be nil. The instance must be bound as a receiver on the
// ledger (see token.Book.Bind) so a deposited token registers.
func New(ledger token.Ledger, vault funds.Vault, events event.Emitter, seller, admin token.Address, price *uint256.Int) (*Instance, error) {
	if ledger == nil {
		return nil, fmt.Errorf("token ledger is required")
	}
	if vault == nil {
		return nil, fmt.Errorf("vault is required")
	}
	if seller == token.None {
		return nil, fmt.Errorf("seller address is required")
	}
	if admin == token.None {
		return nil, fmt.Errorf("admin address is required")
	}
	if price == nil || price.IsZero() {
		return nil, market.ErrInvalidPrice
	}

	inst := &Instance{
		addr:   token.Address("escrow-" + uuid.NewString()),
		seller: seller,
		admin:  admin,
		ledger: ledger,
		vault:  vault,
		events: events,
	}
	(&inst.price).Set(price)
	return inst, nil
}

// OnTokenReceived records the first token that arrives at the instance's
// address. The instance tracks exactly one token; later arrivals leave
// the binding unchanged.
func (i *Instance) OnTokenReceived(from token.Address, id token.ID) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.tokenAdded {
		return
	}
	i.tokenID = id
	i.tokenAdded = true
}

// Pay settles the sale: the attached value must equal the price exactly,
// a token must have been deposited, and the sale must not have settled
// before. The paid flag commits before the token moves; a failed
// transfer rolls the settlement back and refunds the buyer.
func (i *Instance) Pay(ctx context.Context, buyer token.Address, value *uint256.Int) error {
	if buyer == token.None {
		return token.ErrEmptyAddress
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.tokenAdded {
		return ErrNoToken
	}
	if i.paid {
		return ErrAlreadySold
	}
	if value == nil || !value.Eq(&i.price) {
		return market.ErrIncorrectPrice
	}

	if err := i.vault.Collect(ctx, buyer, value); err != nil {
		return fmt.Errorf("collect payment: %w", err)
	}

	payment, fee := market.SplitPrice(&i.price)
	(&i.payment).Set(payment)
	(&i.fee).Set(fee)
	i.paid = true

	if err := i.ledger.Transfer(ctx, i.addr, buyer, i.tokenID); err != nil {
		i.paid = false
		(&i.payment).Clear()
		(&i.fee).Clear()
		cause := fmt.Errorf("transfer token %d: %w", i.tokenID, err)
		if rbErr := i.vault.Disburse(ctx, buyer, value); rbErr != nil {
			return fmt.Errorf("%v; refund payment: %w", cause, rbErr)
		}
		return cause
	}

	event.Emit(i.events, event.New(event.TypePaymentMade, map[string]string{
		"buyer":    string(buyer),
		"token_id": strconv.FormatUint(uint64(i.tokenID), 10),
		"value":    value.Dec(),
	}))
	return nil
}

// Withdraw pays the seller's share out after the sale has settled.
func (i *Instance) Withdraw(ctx context.Context, caller token.Address) (*uint256.Int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if caller == token.None || caller != i.seller {
		return nil, market.ErrNotAuthorized
	}
	if !i.paid {
		return nil, market.ErrNothingToWithdraw
	}
	if i.paymentClaimed {
		return nil, market.ErrAlreadyWithdrawn
	}

	i.paymentClaimed = true
	amount := (&i.payment).Clone()
	if err := i.vault.Disburse(ctx, caller, amount); err != nil {
		i.paymentClaimed = false
		return nil, fmt.Errorf("disburse payment: %w", err)
	}

	event.Emit(i.events, event.New(event.TypePayoutSent, map[string]string{
		"payee":  string(caller),
		"amount": amount.Dec(),
	}))
	return amount, nil
}

// WithdrawFee pays the platform fee out to the admin after settlement.
func (i *Instance) WithdrawFee(ctx context.Context, caller token.Address) (*uint256.Int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if caller == token.None || caller != i.admin {
		return nil, market.ErrNotAuthorizedFee
	}
	if !i.paid {
		return nil, market.ErrNothingToWithdraw
	}
	if i.feeClaimed {
		return nil, market.ErrAlreadyWithdrawn
	}

	i.feeClaimed = true
	amount := (&i.fee).Clone()
	if err := i.vault.Disburse(ctx, caller, amount); err != nil {
		i.feeClaimed = false
		return nil, fmt.Errorf("disburse fee: %w", err)
	}

	event.Emit(i.events, event.New(event.TypeFeeWithdrawn, map[string]string{
		"payee":  string(caller),
		"amount": amount.Dec(),
	}))
	return amount, nil
}

// Addr returns the instance's holding address.
func (i *Instance) Addr() token.Address { return i.addr }

// Seller returns the address entitled to the sale payment.
func (i *Instance) Seller() token.Address { return i.seller }

// Price returns the fixed sale price.
func (i *Instance) Price() *uint256.Int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return (&i.price).Clone()
}

// Paid reports whether the sale has settled.
func (i *Instance) Paid() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.paid
}

// TokenAdded reports whether a token has been deposited.
func (i *Instance) TokenAdded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tokenAdded
}

// TokenID returns the bound token, or 0 before any deposit.
func (i *Instance) TokenID() token.ID {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tokenID
}

// Payment returns the seller's share recorded at settlement.
func (i *Instance) Payment() *uint256.Int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return (&i.payment).Clone()
}

// Fee returns the platform share recorded at settlement.
func (i *Instance) Fee() *uint256.Int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return (&i.fee).Clone()
}

var _ token.Receiver = (*Instance)(nil)
