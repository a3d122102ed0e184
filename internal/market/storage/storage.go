// Package storage defines persistence contracts for marketplace listing
// state.
package storage

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/nftrack/nftrack/internal/token"
)

// PaymentRecord stores the settlement state of one listing key. A record
// is never deleted: after a sale its Price is zero and its accumulated
// Payment and Fee stay at their post-sale values so the key remains
// queryable. PaymentClaimed and FeeClaimed are internal bookkeeping that
// makes a second withdrawal impossible without resetting the visible
// amounts.
type PaymentRecord struct {
	Payment        uint256.Int
	Price          uint256.Int
	Fee            uint256.Int
	TokenID        token.ID
	Seller         token.Address
	PaymentClaimed bool
	FeeClaimed     bool
}

// RecordStore persists payment records keyed by externally chosen item
// ids, plus the per-token on-sale flag. GetRecord returns a zero record
// for unseen keys; the settlement engine enforces all invariants before
// writing.
type RecordStore interface {
	GetRecord(ctx context.Context, itemID string) (PaymentRecord, error)
	PutRecord(ctx context.Context, itemID string, record PaymentRecord) error
	OnSale(ctx context.Context, id token.ID) (bool, error)
	SetOnSale(ctx context.Context, id token.ID, onSale bool) error
}
