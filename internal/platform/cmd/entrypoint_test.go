package cmd

import (
	"context"
	"flag"
	"testing"
)

type testConfig struct {
	Admin  string `env:"NFTRACK_CMD_TEST_ADMIN" envDefault:"platform"`
	DBPath string `env:"NFTRACK_CMD_TEST_DB_PATH" envDefault:"data/market.db"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("NFTRACK_CMD_TEST_ADMIN", "env-admin")
	t.Setenv("NFTRACK_CMD_TEST_DB_PATH", "env.db")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var cfg testConfig
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Admin, "admin", cfg.Admin, "admin address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "db path")

	if err := ParseArgs(fs, []string{"-admin", "flag-admin"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Admin != "flag-admin" {
		t.Fatalf("admin = %q, want flag override", cfg.Admin)
	}
	if cfg.DBPath != "env.db" {
		t.Fatalf("db path = %q, want env value", cfg.DBPath)
	}
}

func TestParseConfigFromArgsReadsEnvAndFlags(t *testing.T) {
	t.Setenv("NFTRACK_CMD_TEST_ADMIN", "env-admin")

	var cfg testConfig
	fs := flag.NewFlagSet("configargs", flag.ContinueOnError)
	fs.StringVar(&cfg.Admin, "admin", "", "admin address")
	if err := ParseConfigFromArgs(&cfg, fs, []string{"-admin", "flag-admin"}); err != nil {
		t.Fatalf("parse config and args: %v", err)
	}
	if cfg.Admin != "flag-admin" {
		t.Fatalf("admin = %q, want flag override", cfg.Admin)
	}
}

func TestRunWithTelemetryRequiresService(t *testing.T) {
	t.Parallel()

	err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected missing service error")
	}
	err = RunWithTelemetry(context.Background(), ServiceMarket, nil)
	if err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryExecutesRun(t *testing.T) {
	t.Setenv("NFTRACK_OTEL_ENDPOINT", "")

	ran := false
	err := RunWithTelemetry(context.Background(), ServiceMarket, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("run with telemetry: %v", err)
	}
	if !ran {
		t.Fatal("run function was not executed")
	}
}
