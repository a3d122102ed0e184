package market

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		TokenDBPath:  filepath.Join(dir, "tokens.db"),
		MarketDBPath: filepath.Join(dir, "market.db"),
		EventLogPath: filepath.Join(dir, "events.jsonl"),
		Admin:        "admin",
	}
}

func run(t *testing.T, cfg Config, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := runCommand(context.Background(), cfg, args, &out); err != nil {
		t.Fatalf("run %v: %v", args, err)
	}
	return out.String()
}

func TestParseConfigFlagsAndOperands(t *testing.T) {
	t.Setenv("NFTRACK_ADMIN_ADDRESS", "env-admin")

	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	cfg, operands, err := ParseConfig(fs, []string{"-token-db", "t.db", "show", "house"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.TokenDBPath != "t.db" {
		t.Fatalf("token db = %q, want flag override", cfg.TokenDBPath)
	}
	if cfg.Admin != "env-admin" {
		t.Fatalf("admin = %q, want env value", cfg.Admin)
	}
	if len(operands) != 2 || operands[0] != "show" || operands[1] != "house" {
		t.Fatalf("operands = %v, want [show house]", operands)
	}
}

func TestRunCommandRequiresSubcommand(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	var out bytes.Buffer
	if err := runCommand(context.Background(), cfg, nil, &out); err == nil {
		t.Fatal("expected usage error")
	}
	if err := runCommand(context.Background(), cfg, []string{"bogus"}, &out); err == nil {
		t.Fatal("expected unknown subcommand error")
	}
}

func TestListingLifecycle(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	out := run(t, cfg, "create-listing", "alice", "100", "house")
	if !strings.Contains(out, "token 1") {
		t.Fatalf("create-listing output = %q, want first token id", out)
	}

	out = run(t, cfg, "on-sale", "1")
	if !strings.Contains(out, "on sale: true") {
		t.Fatalf("on-sale output = %q, want on sale", out)
	}

	run(t, cfg, "pay", "bob", "house", "100")

	out = run(t, cfg, "show", "house")
	if !strings.Contains(out, "payment: 98") || !strings.Contains(out, "fee:     2") {
		t.Fatalf("show output = %q, want settled amounts", out)
	}
	if !strings.Contains(out, "price:   0") {
		t.Fatalf("show output = %q, want cleared price", out)
	}

	out = run(t, cfg, "withdraw", "alice", "house")
	if !strings.Contains(out, "paid 98 to alice") {
		t.Fatalf("withdraw output = %q", out)
	}
	out = run(t, cfg, "withdraw-fee", "admin", "house")
	if !strings.Contains(out, "paid fee 2 to admin") {
		t.Fatalf("withdraw-fee output = %q", out)
	}

	run(t, cfg, "resell", "bob", "250", "house-2", "1")
	out = run(t, cfg, "show", "house-2")
	if !strings.Contains(out, "price:   250") || !strings.Contains(out, "seller:  bob") {
		t.Fatalf("show output = %q, want fresh listing", out)
	}
}

func TestBadAmountAndTokenID(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	var out bytes.Buffer
	if err := runCommand(context.Background(), cfg, []string{"create-listing", "alice", "ten", "house"}, &out); err == nil {
		t.Fatal("expected amount parse error")
	}
	if err := runCommand(context.Background(), cfg, []string{"on-sale", "first"}, &out); err == nil {
		t.Fatal("expected token id parse error")
	}
}
