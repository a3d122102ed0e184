// Package token implements the ledger of uniquely identified items: who
// owns each token, which single transferee (if any) is approved to move
// it, and the minting of new tokens with sequential identifiers.
package token

import (
	"context"
	"errors"
)

// Address identifies an account that can hold tokens and funds.
type Address string

// None is the zero address: no owner, no approval.
const None Address = ""

// ID is a sequential token identifier, permanent once assigned. IDs start
// at 1; 0 means "no token".
type ID uint64

var (
	// ErrNotOwner indicates the sender does not own the token being moved.
	ErrNotOwner = errors.New("you are not the owner of the token")
	// ErrUnknownToken indicates the token id has never been minted.
	ErrUnknownToken = errors.New("token does not exist")
	// ErrEmptyAddress indicates a required address was missing.
	ErrEmptyAddress = errors.New("address is required")
)

// Ledger is the ownership ledger the settlement engine depends on.
//
// Transfer moves a token and clears any prior approval on it; it fails
// with ErrNotOwner unless from currently owns the token. Approve
// delegates a single transferee per token and likewise requires owner to
// hold the token.
type Ledger interface {
	Mint(ctx context.Context, to Address) (ID, error)
	Transfer(ctx context.Context, from, to Address, id ID) error
	Approve(ctx context.Context, owner Address, id ID, spender Address) error
	OwnerOf(ctx context.Context, id ID) (Address, error)
	BalanceOf(ctx context.Context, addr Address) (uint64, error)
	Approved(ctx context.Context, id ID) (Address, error)
}

// Receiver is notified when a token arrives at a bound address, either by
// mint or by transfer. The notification happens synchronously within the
// ledger operation that moved the token.
type Receiver interface {
	OnTokenReceived(from Address, id ID)
}
