// Package market implements the marketplace settlement engine: listing
// creation, payment with an atomic fee split and ownership transfer, and
// independent withdrawal of the seller's and admin's shares.
package market

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nftrack/nftrack/internal/event"
	"github.com/nftrack/nftrack/internal/funds"
	"github.com/nftrack/nftrack/internal/market/storage"
	"github.com/nftrack/nftrack/internal/token"
)

const tracerName = "github.com/nftrack/nftrack/internal/market"

// Engine is the marketplace settlement state machine. Each listing key
// progresses Unlisted -> Listed -> Sold once; the seller and admin then
// withdraw their shares independently. Operations are serialized so each
// one commits as a whole or not at all.
type Engine struct {
	mu      sync.Mutex
	ledger  token.Ledger
	records storage.RecordStore
	vault   funds.Vault
	events  event.Emitter
	admin   token.Address
	tracer  trace.Tracer
}

// Config carries the engine's collaborators and fixed configuration.
type Config struct {
	Ledger  token.Ledger
	Records storage.RecordStore
	Vault   funds.Vault
	// Events may be nil.
	Events event.Emitter
	// Admin is the sole address allowed to withdraw accumulated fees.
	Admin token.Address
}

// NewEngine creates a settlement engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("token ledger is required")
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault is required")
	}
	if cfg.Admin == token.None {
		return nil, fmt.Errorf("admin address is required")
	}
	return &Engine{
		ledger:  cfg.Ledger,
		records: cfg.Records,
		vault:   cfg.Vault,
		events:  cfg.Events,
		admin:   cfg.Admin,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Admin returns the configured fee-withdrawal address.
func (e *Engine) Admin() token.Address {
	return e.admin
}

// CreateListing mints a new token to the seller and opens a listing for
// it under itemID. The key must never have been used before and the
// price must be strictly positive.
func (e *Engine) CreateListing(ctx context.Context, seller token.Address, price *uint256.Int, itemID string) (token.ID, error) {
	ctx, span := e.tracer.Start(ctx, "market.CreateListing",
		trace.WithAttributes(attribute.String("item_id", itemID)))
	defer span.End()

	if seller == token.None {
		return 0, token.ErrEmptyAddress
	}
	if itemID == "" {
		return 0, fmt.Errorf("item id is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.GetRecord(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("load record %q: %w", itemID, err)
	}
	if record.TokenID != 0 {
		span.RecordError(ErrAlreadyListed)
		return 0, ErrAlreadyListed
	}
	if price == nil || price.IsZero() {
		span.RecordError(ErrInvalidPrice)
		return 0, ErrInvalidPrice
	}

	id, err := e.ledger.Mint(ctx, seller)
	if err != nil {
		return 0, fmt.Errorf("mint token: %w", err)
	}

	record = storage.PaymentRecord{TokenID: id, Seller: seller}
	(&record.Price).Set(price)
	if err := e.records.PutRecord(ctx, itemID, record); err != nil {
		return 0, fmt.Errorf("store record %q: %w", itemID, err)
	}
	if err := e.records.SetOnSale(ctx, id, true); err != nil {
		return 0, fmt.Errorf("mark token %d on sale: %w", id, err)
	}

	span.SetAttributes(attribute.Int64("token_id", int64(id)))
	event.Emit(e.events, event.New(event.TypeListingCreated, map[string]string{
		"item_id":  itemID,
		"token_id": strconv.FormatUint(uint64(id), 10),
		"to":       string(seller),
	}))
	return id, nil
}

// Pay settles a listing: the attached value must equal the sale price
// exactly. The record is committed with its price zeroed before the
// token moves, so a racing second payment against the same key observes
// a closed listing and fails with ErrNotForSale. A failure after the
// value is collected refunds the buyer and reopens the listing.
func (e *Engine) Pay(ctx context.Context, buyer token.Address, itemID string, value *uint256.Int) error {
	ctx, span := e.tracer.Start(ctx, "market.Pay",
		trace.WithAttributes(attribute.String("item_id", itemID)))
	defer span.End()

	if buyer == token.None {
		return token.ErrEmptyAddress
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.GetRecord(ctx, itemID)
	if err != nil {
		return fmt.Errorf("load record %q: %w", itemID, err)
	}

	settled, err := ApplySale(record, value)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// The token must be movable before anything commits; a valid listing
	// always passes this check.
	owner, err := e.ledger.OwnerOf(ctx, record.TokenID)
	if err != nil {
		return fmt.Errorf("load token %d: %w", record.TokenID, err)
	}
	if owner != record.Seller {
		return fmt.Errorf("listing %q: token %d is no longer held by the seller", itemID, record.TokenID)
	}

	if err := e.vault.Collect(ctx, buyer, value); err != nil {
		return fmt.Errorf("collect payment: %w", err)
	}

	// Every write after this point compensates on failure: the collected
	// value goes back to the buyer and the listing stays open.
	if err := e.records.PutRecord(ctx, itemID, settled); err != nil {
		return e.refund(ctx, buyer, value, fmt.Errorf("store record %q: %w", itemID, err))
	}
	if err := e.ledger.Transfer(ctx, record.Seller, buyer, record.TokenID); err != nil {
		cause := fmt.Errorf("transfer token %d: %w", record.TokenID, err)
		if putErr := e.records.PutRecord(ctx, itemID, record); putErr != nil {
			return fmt.Errorf("%v; restore record: %w", cause, putErr)
		}
		return e.refund(ctx, buyer, value, cause)
	}
	if err := e.records.SetOnSale(ctx, record.TokenID, false); err != nil {
		cause := fmt.Errorf("clear on-sale flag for token %d: %w", record.TokenID, err)
		if backErr := e.ledger.Transfer(ctx, buyer, record.Seller, record.TokenID); backErr != nil {
			return fmt.Errorf("%v; return token: %w", cause, backErr)
		}
		if putErr := e.records.PutRecord(ctx, itemID, record); putErr != nil {
			return fmt.Errorf("%v; restore record: %w", cause, putErr)
		}
		return e.refund(ctx, buyer, value, cause)
	}

	span.SetAttributes(attribute.Int64("token_id", int64(record.TokenID)))
	event.Emit(e.events, event.New(event.TypePaymentMade, map[string]string{
		"item_id":  itemID,
		"seller":   string(record.Seller),
		"token_id": strconv.FormatUint(uint64(record.TokenID), 10),
		"value":    value.Dec(),
	}))
	return nil
}

// refund returns collected value to the buyer after a failed settlement
// write. The original cause wins; a failed refund is reported alongside
// it.
func (e *Engine) refund(ctx context.Context, buyer token.Address, value *uint256.Int, cause error) error {
	if err := e.vault.Disburse(ctx, buyer, value); err != nil {
		return fmt.Errorf("%v; refund payment: %w", cause, err)
	}
	return cause
}

// Withdraw pays the accumulated payment out to the seller. The visible
// record keeps its accumulated amount; an internal claim flag makes a
// second withdrawal fail with ErrAlreadyWithdrawn.
func (e *Engine) Withdraw(ctx context.Context, caller token.Address, itemID string) (*uint256.Int, error) {
	ctx, span := e.tracer.Start(ctx, "market.Withdraw",
		trace.WithAttributes(attribute.String("item_id", itemID)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.GetRecord(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load record %q: %w", itemID, err)
	}
	if caller == token.None || caller != record.Seller {
		span.RecordError(ErrNotAuthorized)
		return nil, ErrNotAuthorized
	}
	if (&record.Payment).IsZero() {
		return nil, ErrNothingToWithdraw
	}
	if record.PaymentClaimed {
		span.RecordError(ErrAlreadyWithdrawn)
		return nil, ErrAlreadyWithdrawn
	}

	// Claim before the value moves so a reentrant call cannot drain twice.
	record.PaymentClaimed = true
	if err := e.records.PutRecord(ctx, itemID, record); err != nil {
		return nil, fmt.Errorf("store record %q: %w", itemID, err)
	}

	amount := (&record.Payment).Clone()
	if err := e.vault.Disburse(ctx, caller, amount); err != nil {
		record.PaymentClaimed = false
		if putErr := e.records.PutRecord(ctx, itemID, record); putErr != nil {
			return nil, fmt.Errorf("disburse payment: %v; restore claim: %w", err, putErr)
		}
		return nil, fmt.Errorf("disburse payment: %w", err)
	}

	event.Emit(e.events, event.New(event.TypePayoutSent, map[string]string{
		"item_id": itemID,
		"payee":   string(caller),
		"amount":  amount.Dec(),
	}))
	return amount, nil
}

// WithdrawFee pays the accumulated fee out to the admin.
func (e *Engine) WithdrawFee(ctx context.Context, caller token.Address, itemID string) (*uint256.Int, error) {
	ctx, span := e.tracer.Start(ctx, "market.WithdrawFee",
		trace.WithAttributes(attribute.String("item_id", itemID)))
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	record, err := e.records.GetRecord(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load record %q: %w", itemID, err)
	}
	if caller == token.None || caller != e.admin {
		span.RecordError(ErrNotAuthorizedFee)
		return nil, ErrNotAuthorizedFee
	}
	if (&record.Fee).IsZero() {
		return nil, ErrNothingToWithdraw
	}
	if record.FeeClaimed {
		span.RecordError(ErrAlreadyWithdrawn)
		return nil, ErrAlreadyWithdrawn
	}

	record.FeeClaimed = true
	if err := e.records.PutRecord(ctx, itemID, record); err != nil {
		return nil, fmt.Errorf("store record %q: %w", itemID, err)
	}

	amount := (&record.Fee).Clone()
	if err := e.vault.Disburse(ctx, caller, amount); err != nil {
		record.FeeClaimed = false
		if putErr := e.records.PutRecord(ctx, itemID, record); putErr != nil {
			return nil, fmt.Errorf("disburse fee: %v; restore claim: %w", err, putErr)
		}
		return nil, fmt.Errorf("disburse fee: %w", err)
	}

	event.Emit(e.events, event.New(event.TypeFeeWithdrawn, map[string]string{
		"item_id": itemID,
		"payee":   string(caller),
		"amount":  amount.Dec(),
	}))
	return amount, nil
}

// Resell opens a new listing for an already-owned token under a fresh
// key. Only the current owner may relist, the token must not already
// have a live listing, and the target key must be unused. No new token
// is minted.
func (e *Engine) Resell(ctx context.Context, caller token.Address, newPrice *uint256.Int, newItemID string, id token.ID) error {
	ctx, span := e.tracer.Start(ctx, "market.Resell",
		trace.WithAttributes(
			attribute.String("item_id", newItemID),
			attribute.Int64("token_id", int64(id)),
		))
	defer span.End()

	if newItemID == "" {
		return fmt.Errorf("item id is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	owner, err := e.ledger.OwnerOf(ctx, id)
	if err != nil {
		return fmt.Errorf("load token %d: %w", id, err)
	}
	if caller == token.None || caller != owner {
		span.RecordError(token.ErrNotOwner)
		return token.ErrNotOwner
	}
	if newPrice == nil || newPrice.IsZero() {
		span.RecordError(ErrInvalidPrice)
		return ErrInvalidPrice
	}

	onSale, err := e.records.OnSale(ctx, id)
	if err != nil {
		return fmt.Errorf("load on-sale flag for token %d: %w", id, err)
	}
	if onSale {
		span.RecordError(ErrAlreadyListed)
		return ErrAlreadyListed
	}
	existing, err := e.records.GetRecord(ctx, newItemID)
	if err != nil {
		return fmt.Errorf("load record %q: %w", newItemID, err)
	}
	if existing.TokenID != 0 {
		span.RecordError(ErrAlreadyListed)
		return ErrAlreadyListed
	}

	record := storage.PaymentRecord{TokenID: id, Seller: caller}
	(&record.Price).Set(newPrice)
	if err := e.records.PutRecord(ctx, newItemID, record); err != nil {
		return fmt.Errorf("store record %q: %w", newItemID, err)
	}
	if err := e.records.SetOnSale(ctx, id, true); err != nil {
		return fmt.Errorf("mark token %d on sale: %w", id, err)
	}

	event.Emit(e.events, event.New(event.TypeListingRelisted, map[string]string{
		"item_id":  newItemID,
		"token_id": strconv.FormatUint(uint64(id), 10),
		"seller":   string(caller),
	}))
	return nil
}

// PaymentView is the externally visible state of a payment record. The
// internal claim flags are deliberately absent: after a withdrawal the
// accumulated amounts remain at their post-sale values.
type PaymentView struct {
	Payment uint256.Int
	Price   uint256.Int
	Fee     uint256.Int
	TokenID token.ID
	Seller  token.Address
}

// CheckPaymentRecord returns the visible settlement state for a listing
// key. Unseen keys return a zero view.
func (e *Engine) CheckPaymentRecord(ctx context.Context, itemID string) (PaymentView, error) {
	record, err := e.records.GetRecord(ctx, itemID)
	if err != nil {
		return PaymentView{}, fmt.Errorf("load record %q: %w", itemID, err)
	}
	view := PaymentView{TokenID: record.TokenID, Seller: record.Seller}
	(&view.Payment).Set(&record.Payment)
	(&view.Price).Set(&record.Price)
	(&view.Fee).Set(&record.Fee)
	return view, nil
}

// CheckOnSale reports whether the token currently has a live listing.
func (e *Engine) CheckOnSale(ctx context.Context, id token.ID) (bool, error) {
	return e.records.OnSale(ctx, id)
}

// OwnerOf returns the token's current holder.
func (e *Engine) OwnerOf(ctx context.Context, id token.ID) (token.Address, error) {
	return e.ledger.OwnerOf(ctx, id)
}

// BalanceOf returns how many tokens the address holds.
func (e *Engine) BalanceOf(ctx context.Context, addr token.Address) (uint64, error) {
	return e.ledger.BalanceOf(ctx, addr)
}

// Approved returns the approved transferee for the token, or token.None.
func (e *Engine) Approved(ctx context.Context, id token.ID) (token.Address, error) {
	return e.ledger.Approved(ctx, id)
}
