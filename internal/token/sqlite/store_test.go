package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nftrack/nftrack/internal/token"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tokens.db"), nil)
	if err != nil {
		t.Fatalf("open token store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close token store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open("", nil); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestMintAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	first, err := store.Mint(ctx, "seller")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	second, err := store.Mint(ctx, "seller")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", first, second)
	}

	balance, err := store.BalanceOf(ctx, "seller")
	if err != nil {
		t.Fatalf("balance of: %v", err)
	}
	if balance != 2 {
		t.Fatalf("balance = %d, want 2", balance)
	}
}

func TestTransferMovesOwnershipAndClearsApproval(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	id, err := store.Mint(ctx, "seller")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := store.Approve(ctx, "seller", id, "broker"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := store.Transfer(ctx, "seller", "buyer", id); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	owner, err := store.OwnerOf(ctx, id)
	if err != nil {
		t.Fatalf("owner of: %v", err)
	}
	if owner != "buyer" {
		t.Fatalf("owner = %q, want %q", owner, "buyer")
	}
	approved, err := store.Approved(ctx, id)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if approved != token.None {
		t.Fatalf("approved = %q, want cleared", approved)
	}
}

func TestTransferRejectsNonOwner(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	id, err := store.Mint(ctx, "seller")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := store.Transfer(ctx, "mallory", "buyer", id); !errors.Is(err, token.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if err := store.Transfer(ctx, "seller", "buyer", 42); !errors.Is(err, token.ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}

func TestApproveRejectsNonOwner(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()

	id, err := store.Mint(ctx, "seller")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := store.Approve(ctx, "mallory", id, "broker"); !errors.Is(err, token.ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if err := store.Approve(ctx, "seller", 42, "broker"); !errors.Is(err, token.ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}

func TestOwnerOfUnknownToken(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.OwnerOf(context.Background(), 7); !errors.Is(err, token.ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}
