// Package market parses marketplace CLI flags and runs subcommands
// against the sqlite-backed settlement engine.
package market

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/holiman/uint256"

	"github.com/nftrack/nftrack/internal/event"
	"github.com/nftrack/nftrack/internal/funds"
	"github.com/nftrack/nftrack/internal/market"
	marketsqlite "github.com/nftrack/nftrack/internal/market/storage/sqlite"
	entrypoint "github.com/nftrack/nftrack/internal/platform/cmd"
	"github.com/nftrack/nftrack/internal/token"
	tokensqlite "github.com/nftrack/nftrack/internal/token/sqlite"
)

// Config holds market command configuration.
type Config struct {
	TokenDBPath  string `env:"NFTRACK_TOKEN_DB_PATH" envDefault:"data/tokens.db"`
	MarketDBPath string `env:"NFTRACK_MARKET_DB_PATH" envDefault:"data/market.db"`
	EventLogPath string `env:"NFTRACK_EVENT_LOG_PATH" envDefault:"data/events.jsonl"`
	Admin        string `env:"NFTRACK_ADMIN_ADDRESS" envDefault:"admin"`
}

// ParseConfig parses environment and flags into Config. The remaining
// positional arguments select the subcommand and its operands.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, []string, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, nil, err
	}
	fs.StringVar(&cfg.TokenDBPath, "token-db", cfg.TokenDBPath, "Path to the token ledger database")
	fs.StringVar(&cfg.MarketDBPath, "market-db", cfg.MarketDBPath, "Path to the payment record database")
	fs.StringVar(&cfg.EventLogPath, "events", cfg.EventLogPath, "Path to the JSONL event log")
	fs.StringVar(&cfg.Admin, "admin", cfg.Admin, "Address allowed to withdraw fees")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, nil, err
	}
	return cfg, fs.Args(), nil
}

// Run executes a marketplace subcommand.
func Run(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceMarket, func(ctx context.Context) error {
		return runCommand(ctx, cfg, args, out)
	})
}

func runCommand(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError()
	}

	events, err := event.OpenLog(cfg.EventLogPath)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer events.Close()

	ledger, err := tokensqlite.Open(cfg.TokenDBPath, events)
	if err != nil {
		return fmt.Errorf("open token ledger: %w", err)
	}
	defer ledger.Close()

	records, err := marketsqlite.Open(cfg.MarketDBPath)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer records.Close()

	engine, err := market.NewEngine(market.Config{
		Ledger:  ledger,
		Records: records,
		Vault:   funds.NewTally(),
		Events:  events,
		Admin:   token.Address(cfg.Admin),
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	name, operands := args[0], args[1:]
	switch name {
	case "create-listing":
		return runCreateListing(ctx, engine, operands, out)
	case "pay":
		return runPay(ctx, engine, operands, out)
	case "withdraw":
		return runWithdraw(ctx, engine, operands, out)
	case "withdraw-fee":
		return runWithdrawFee(ctx, engine, operands, out)
	case "resell":
		return runResell(ctx, engine, operands, out)
	case "show":
		return runShow(ctx, engine, operands, out)
	case "on-sale":
		return runOnSale(ctx, engine, operands, out)
	default:
		return fmt.Errorf("unknown subcommand %q", name)
	}
}

func runCreateListing(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: create-listing <seller> <price> <item-id>")
	}
	price, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	id, err := engine.CreateListing(ctx, token.Address(args[0]), price, args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "listed item %s as token %d for %s\n", args[2], id, price.Dec())
	return nil
}

func runPay(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: pay <buyer> <item-id> <value>")
	}
	value, err := parseAmount(args[2])
	if err != nil {
		return err
	}
	if err := engine.Pay(ctx, token.Address(args[0]), args[1], value); err != nil {
		return err
	}
	fmt.Fprintf(out, "item %s sold to %s for %s\n", args[1], args[0], value.Dec())
	return nil
}

func runWithdraw(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: withdraw <caller> <item-id>")
	}
	amount, err := engine.Withdraw(ctx, token.Address(args[0]), args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "paid %s to %s\n", amount.Dec(), args[0])
	return nil
}

func runWithdrawFee(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: withdraw-fee <caller> <item-id>")
	}
	amount, err := engine.WithdrawFee(ctx, token.Address(args[0]), args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "paid fee %s to %s\n", amount.Dec(), args[0])
	return nil
}

func runResell(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: resell <caller> <new-price> <new-item-id> <token-id>")
	}
	price, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	id, err := parseTokenID(args[3])
	if err != nil {
		return err
	}
	if err := engine.Resell(ctx, token.Address(args[0]), price, args[2], id); err != nil {
		return err
	}
	fmt.Fprintf(out, "relisted token %d as item %s for %s\n", id, args[2], price.Dec())
	return nil
}

func runShow(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <item-id>")
	}
	view, err := engine.CheckPaymentRecord(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "item %s\n", args[0])
	fmt.Fprintf(out, "  token:   %d\n", view.TokenID)
	fmt.Fprintf(out, "  seller:  %s\n", view.Seller)
	fmt.Fprintf(out, "  price:   %s\n", view.Price.Dec())
	fmt.Fprintf(out, "  payment: %s\n", view.Payment.Dec())
	fmt.Fprintf(out, "  fee:     %s\n", view.Fee.Dec())
	return nil
}

func runOnSale(ctx context.Context, engine *market.Engine, args []string, out io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: on-sale <token-id>")
	}
	id, err := parseTokenID(args[0])
	if err != nil {
		return err
	}
	onSale, err := engine.CheckOnSale(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "token %d on sale: %t\n", id, onSale)
	return nil
}

func parseAmount(value string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return amount, nil
}

func parseTokenID(value string) (token.ID, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token id %q: %w", value, err)
	}
	return token.ID(id), nil
}

func usageError() error {
	return fmt.Errorf("usage: market [flags] <create-listing|pay|withdraw|withdraw-fee|resell|show|on-sale> ...")
}
