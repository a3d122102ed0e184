// Package sqlite provides a SQLite-backed listing storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/holiman/uint256"
	_ "modernc.org/sqlite"

	"github.com/nftrack/nftrack/internal/market/storage"
	"github.com/nftrack/nftrack/internal/market/storage/sqlite/migrations"
	"github.com/nftrack/nftrack/internal/platform/storage/sqlitemigrate"
	"github.com/nftrack/nftrack/internal/token"
)

// Store persists listing state in SQLite. Amounts are stored as decimal
// text so the full 256-bit range round-trips exactly.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite listing store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetRecord returns the record for itemID, or a zero record for an
// unseen key.
func (s *Store) GetRecord(ctx context.Context, itemID string) (storage.PaymentRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.PaymentRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.PaymentRecord{}, fmt.Errorf("storage is not configured")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return storage.PaymentRecord{}, fmt.Errorf("item id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT payment, price, fee, token_id, seller, payment_claimed, fee_claimed
		   FROM payment_records
		  WHERE item_id = ?`,
		itemID,
	)

	var record storage.PaymentRecord
	var payment, price, fee string
	var tokenID uint64
	var seller string
	var paymentClaimed, feeClaimed int
	err := row.Scan(&payment, &price, &fee, &tokenID, &seller, &paymentClaimed, &feeClaimed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.PaymentRecord{}, nil
		}
		return storage.PaymentRecord{}, fmt.Errorf("get payment record: %w", err)
	}

	if err := scanAmount(&record.Payment, payment); err != nil {
		return storage.PaymentRecord{}, fmt.Errorf("payment record %s: %w", itemID, err)
	}
	if err := scanAmount(&record.Price, price); err != nil {
		return storage.PaymentRecord{}, fmt.Errorf("payment record %s: %w", itemID, err)
	}
	if err := scanAmount(&record.Fee, fee); err != nil {
		return storage.PaymentRecord{}, fmt.Errorf("payment record %s: %w", itemID, err)
	}
	record.TokenID = token.ID(tokenID)
	record.Seller = token.Address(seller)
	record.PaymentClaimed = paymentClaimed != 0
	record.FeeClaimed = feeClaimed != 0
	return record, nil
}

// PutRecord overwrites the record for itemID.
func (s *Store) PutRecord(ctx context.Context, itemID string, record storage.PaymentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return fmt.Errorf("item id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO payment_records (
		   item_id, payment, price, fee, token_id, seller, payment_claimed, fee_claimed
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET
		   payment = excluded.payment,
		   price = excluded.price,
		   fee = excluded.fee,
		   token_id = excluded.token_id,
		   seller = excluded.seller,
		   payment_claimed = excluded.payment_claimed,
		   fee_claimed = excluded.fee_claimed`,
		itemID,
		(&record.Payment).Dec(),
		(&record.Price).Dec(),
		(&record.Fee).Dec(),
		uint64(record.TokenID),
		string(record.Seller),
		boolToInt(record.PaymentClaimed),
		boolToInt(record.FeeClaimed),
	)
	if err != nil {
		return fmt.Errorf("put payment record: %w", err)
	}
	return nil
}

// OnSale reports whether a live listing currently offers the token.
func (s *Store) OnSale(ctx context.Context, id token.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	var listed int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT listed FROM on_sale WHERE token_id = ?`, uint64(id)).Scan(&listed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get on-sale flag: %w", err)
	}
	return listed != 0, nil
}

// SetOnSale updates the on-sale flag for the token.
func (s *Store) SetOnSale(ctx context.Context, id token.ID, onSale bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO on_sale (token_id, listed) VALUES (?, ?)
		 ON CONFLICT(token_id) DO UPDATE SET listed = excluded.listed`,
		uint64(id),
		boolToInt(onSale),
	)
	if err != nil {
		return fmt.Errorf("set on-sale flag: %w", err)
	}
	return nil
}

func scanAmount(dst *uint256.Int, value string) error {
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return fmt.Errorf("parse amount %q: %w", value, err)
	}
	dst.Set(parsed)
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

var _ storage.RecordStore = (*Store)(nil)
