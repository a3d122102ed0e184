// Package memory provides an in-memory listing storage implementation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nftrack/nftrack/internal/market/storage"
	"github.com/nftrack/nftrack/internal/token"
)

// Store keeps payment records and on-sale flags in process memory. It
// backs single-process deployments and tests.
type Store struct {
	mu      sync.Mutex
	records map[string]storage.PaymentRecord
	onSale  map[token.ID]bool
}

// NewStore creates an empty in-memory listing store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]storage.PaymentRecord),
		onSale:  make(map[token.ID]bool),
	}
}

// GetRecord returns the record for itemID, or a zero record for an
// unseen key.
func (s *Store) GetRecord(ctx context.Context, itemID string) (storage.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PaymentRecord{}, err
	}
	if itemID == "" {
		return storage.PaymentRecord{}, fmt.Errorf("item id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[itemID], nil
}

// PutRecord overwrites the record for itemID.
func (s *Store) PutRecord(ctx context.Context, itemID string, record storage.PaymentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if itemID == "" {
		return fmt.Errorf("item id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[itemID] = record
	return nil
}

// OnSale reports whether a live listing currently offers the token.
func (s *Store) OnSale(ctx context.Context, id token.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onSale[id], nil
}

// SetOnSale updates the on-sale flag for the token.
func (s *Store) SetOnSale(ctx context.Context, id token.ID, onSale bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if onSale {
		s.onSale[id] = true
	} else {
		delete(s.onSale, id)
	}
	return nil
}

var _ storage.RecordStore = (*Store)(nil)
