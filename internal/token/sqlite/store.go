// Package sqlite provides a SQLite-backed token ledger implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/nftrack/nftrack/internal/event"
	"github.com/nftrack/nftrack/internal/platform/storage/sqlitemigrate"
	"github.com/nftrack/nftrack/internal/token"
	"github.com/nftrack/nftrack/internal/token/sqlite/migrations"
)

// Store persists token ownership in SQLite.
type Store struct {
	sqlDB  *sql.DB
	events event.Emitter
}

// Open opens a SQLite token ledger and applies embedded migrations. The
// emitter may be nil.
func Open(path string, events event.Emitter) (*Store, error) {
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
	return &Store{sqlDB: sqlDB, events: events}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Mint allocates the next sequential token id and assigns it to the
// receiving address.
func (s *Store) Mint(ctx context.Context, to token.Address) (token.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if to == token.None {
		return 0, token.ErrEmptyAddress
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin mint transaction: %w", err)
	}

	var next uint64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM tokens`).Scan(&next); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("allocate token id: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO tokens (id, owner, approved) VALUES (?, ?, '')`,
		next,
		string(to),
	); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mint token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit mint: %w", err)
	}

	id := token.ID(next)
	event.Emit(s.events, event.New(event.TypeTokenMinted, map[string]string{
		"token_id": strconv.FormatUint(next, 10),
		"to":       string(to),
	}))
	return id, nil
}

// Transfer moves a token from its current owner to a new holder and
// clears any approval on it.
func (s *Store) Transfer(ctx context.Context, from, to token.Address, id token.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if from == token.None || to == token.None {
		return token.ErrEmptyAddress
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transfer transaction: %w", err)
	}

	var owner string
	var cleared string
	err = tx.QueryRowContext(ctx, `SELECT owner, approved FROM tokens WHERE id = ?`, uint64(id)).Scan(&owner, &cleared)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return token.ErrUnknownToken
		}
		return fmt.Errorf("load token %d: %w", id, err)
	}
	if token.Address(owner) != from {
		_ = tx.Rollback()
		return token.ErrNotOwner
	}
	if _, err := tx.ExecContext(
		ctx,
		`UPDATE tokens SET owner = ?, approved = '' WHERE id = ?`,
		string(to),
		uint64(id),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("transfer token %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}

	event.Emit(s.events, event.New(event.TypeTokenTransferred, map[string]string{
		"token_id":         strconv.FormatUint(uint64(id), 10),
		"from":             string(from),
		"to":               string(to),
		"cleared_approval": cleared,
	}))
	return nil
}

// Approve records spender as the single approved transferee for the
// token. Passing token.None as spender clears the approval.
func (s *Store) Approve(ctx context.Context, owner token.Address, id token.ID, spender token.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if owner == token.None {
		return token.ErrEmptyAddress
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE tokens SET approved = ? WHERE id = ? AND owner = ?`,
		string(spender),
		uint64(id),
		string(owner),
	)
	if err != nil {
		return fmt.Errorf("approve token %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve token %d: %w", id, err)
	}
	if affected == 0 {
		if _, err := s.OwnerOf(ctx, id); err != nil {
			return err
		}
		return token.ErrNotOwner
	}

	event.Emit(s.events, event.New(event.TypeTokenApproved, map[string]string{
		"token_id": strconv.FormatUint(uint64(id), 10),
		"owner":    string(owner),
		"spender":  string(spender),
	}))
	return nil
}

// OwnerOf returns the current holder of the token.
func (s *Store) OwnerOf(ctx context.Context, id token.ID) (token.Address, error) {
	if err := ctx.Err(); err != nil {
		return token.None, err
	}
	if s == nil || s.sqlDB == nil {
		return token.None, fmt.Errorf("storage is not configured")
	}

	var owner string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT owner FROM tokens WHERE id = ?`, uint64(id)).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token.None, token.ErrUnknownToken
		}
		return token.None, fmt.Errorf("get token owner: %w", err)
	}
	return token.Address(owner), nil
}

// BalanceOf returns how many tokens the address currently holds.
func (s *Store) BalanceOf(ctx context.Context, addr token.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if addr == token.None {
		return 0, token.ErrEmptyAddress
	}

	var count uint64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tokens WHERE owner = ?`, string(addr)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

// Approved returns the approved transferee for the token, or token.None.
func (s *Store) Approved(ctx context.Context, id token.ID) (token.Address, error) {
	if err := ctx.Err(); err != nil {
		return token.None, err
	}
	if s == nil || s.sqlDB == nil {
		return token.None, fmt.Errorf("storage is not configured")
	}

	var approved string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT approved FROM tokens WHERE id = ?`, uint64(id)).Scan(&approved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return token.None, token.ErrUnknownToken
		}
		return token.None, fmt.Errorf("get token approval: %w", err)
	}
	return token.Address(approved), nil
}

var _ token.Ledger = (*Store)(nil)
