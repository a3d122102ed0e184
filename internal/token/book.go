package token

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/nftrack/nftrack/internal/event"
)

// Book is an in-memory token ledger. All operations are safe for
// concurrent use; each mutating operation commits atomically under one
// lock.
type Book struct {
	mu        sync.Mutex
	nextID    ID
	owners    map[ID]Address
	approved  map[ID]Address
	balances  map[Address]uint64
	receivers map[Address]Receiver
	events    event.Emitter
}

// NewBook creates an empty in-memory ledger. The emitter may be nil.
func NewBook(events event.Emitter) *Book {
	return &Book{
		owners:    make(map[ID]Address),
		approved:  make(map[ID]Address),
		balances:  make(map[Address]uint64),
		receivers: make(map[Address]Receiver),
		events:    events,
	}
}

// Bind registers a receiver hook for addr. Tokens minted or transferred
// to addr will notify the receiver synchronously.
func (b *Book) Bind(addr Address, receiver Receiver) error {
	if addr == None {
		return ErrEmptyAddress
	}
	if receiver == nil {
		return fmt.Errorf("receiver is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receivers[addr] = receiver
	return nil
}

// Mint allocates the next sequential token id and assigns it to the
// receiving address.
func (b *Book) Mint(ctx context.Context, to Address) (ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if to == None {
		return 0, ErrEmptyAddress
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.owners[id] = to
	delete(b.approved, id)
	b.balances[to]++
	receiver := b.receivers[to]
	b.mu.Unlock()

	if receiver != nil {
		receiver.OnTokenReceived(None, id)
	}
	event.Emit(b.events, event.New(event.TypeTokenMinted, map[string]string{
		"token_id": strconv.FormatUint(uint64(id), 10),
		"to":       string(to),
	}))
	return id, nil
}

// Transfer moves a token from its current owner to a new holder and
// clears any approval on it.
func (b *Book) Transfer(ctx context.Context, from, to Address, id ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if from == None || to == None {
		return ErrEmptyAddress
	}

	b.mu.Lock()
	owner, ok := b.owners[id]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownToken
	}
	if owner != from {
		b.mu.Unlock()
		return ErrNotOwner
	}
	cleared := b.approved[id]
	b.owners[id] = to
	delete(b.approved, id)
	b.balances[from]--
	if b.balances[from] == 0 {
		delete(b.balances, from)
	}
	b.balances[to]++
	receiver := b.receivers[to]
	b.mu.Unlock()

	if receiver != nil {
		receiver.OnTokenReceived(from, id)
	}
	event.Emit(b.events, event.New(event.TypeTokenTransferred, map[string]string{
		"token_id":         strconv.FormatUint(uint64(id), 10),
		"from":             string(from),
		"to":               string(to),
		"cleared_approval": string(cleared),
	}))
	return nil
}

// Approve records spender as the single approved transferee for the
// token. Passing None as spender clears the approval.
func (b *Book) Approve(ctx context.Context, owner Address, id ID, spender Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if owner == None {
		return ErrEmptyAddress
	}

	b.mu.Lock()
	current, ok := b.owners[id]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownToken
	}
	if current != owner {
		b.mu.Unlock()
		return ErrNotOwner
	}
	if spender == None {
		delete(b.approved, id)
	} else {
		b.approved[id] = spender
	}
	b.mu.Unlock()

	event.Emit(b.events, event.New(event.TypeTokenApproved, map[string]string{
		"token_id": strconv.FormatUint(uint64(id), 10),
		"owner":    string(owner),
		"spender":  string(spender),
	}))
	return nil
}

// OwnerOf returns the current holder of the token.
func (b *Book) OwnerOf(ctx context.Context, id ID) (Address, error) {
	if err := ctx.Err(); err != nil {
		return None, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	owner, ok := b.owners[id]
	if !ok {
		return None, ErrUnknownToken
	}
	return owner, nil
}

// BalanceOf returns how many tokens the address currently holds.
func (b *Book) BalanceOf(ctx context.Context, addr Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if addr == None {
		return 0, ErrEmptyAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr], nil
}

// Approved returns the approved transferee for the token, or None.
func (b *Book) Approved(ctx context.Context, id ID) (Address, error) {
	if err := ctx.Err(); err != nil {
		return None, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.owners[id]; !ok {
		return None, ErrUnknownToken
	}
	return b.approved[id], nil
}

var _ Ledger = (*Book)(nil)
