package config

import "testing"

type sample struct {
	Admin  string `env:"NFTRACK_TEST_ADMIN" envDefault:"platform"`
	DBPath string `env:"NFTRACK_TEST_DB_PATH"`
}

func TestParseEnvReadsValuesAndDefaults(t *testing.T) {
	t.Setenv("NFTRACK_TEST_DB_PATH", "/tmp/market.db")

	var cfg sample
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.DBPath != "/tmp/market.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "/tmp/market.db")
	}
	if cfg.Admin != "platform" {
		t.Fatalf("admin = %q, want default %q", cfg.Admin, "platform")
	}
}

func TestParseEnvOverridesDefault(t *testing.T) {
	t.Setenv("NFTRACK_TEST_ADMIN", "treasury")

	var cfg sample
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Admin != "treasury" {
		t.Fatalf("admin = %q, want %q", cfg.Admin, "treasury")
	}
}
