// Package event defines the marketplace event taxonomy and emission contracts.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the type of a marketplace event.
type Type string

// Token ledger events.
const (
	// TypeTokenMinted records the minting of a new token.
	TypeTokenMinted Type = "token.minted"
	// TypeTokenTransferred records an ownership transfer.
	TypeTokenTransferred Type = "token.transferred"
	// TypeTokenApproved records an approval delegation change.
	TypeTokenApproved Type = "token.approved"
)

// Listing lifecycle events.
const (
	// TypeListingCreated records a new listing with a freshly minted token.
	TypeListingCreated Type = "listing.created"
	// TypeListingRelisted records an already-owned token listed under a new key.
	TypeListingRelisted Type = "listing.relisted"
)

// Settlement events.
const (
	// TypePaymentMade records a successful payment against a listing.
	TypePaymentMade Type = "payment.made"
	// TypePayoutSent records the seller claiming their accumulated payment.
	TypePayoutSent Type = "payout.sent"
	// TypeFeeWithdrawn records the admin claiming the accumulated fee.
	TypeFeeWithdrawn Type = "fee.withdrawn"
)

// Event is one emitted marketplace event with its payload fields.
type Event struct {
	ID     string            `json:"id"`
	Type   Type              `json:"type"`
	At     time.Time         `json:"at"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Emitter receives marketplace events as they are committed.
type Emitter interface {
	Emit(evt Event)
}

// New creates an event with a generated ID and the current UTC time.
func New(eventType Type, fields map[string]string) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		At:     time.Now().UTC(),
		Fields: fields,
	}
}

// Emit sends evt to emitter when one is configured.
func Emit(emitter Emitter, evt Event) {
	if emitter == nil {
		return
	}
	emitter.Emit(evt)
}
