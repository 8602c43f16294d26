package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chandelier-backtest/services/engine"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.Trials != 100 || cfg.Strategy.MinTradeUnit != 100 || cfg.Backtest.EntryMode != "next_open" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.EngineBacktest().EntryMode; got != engine.EntryModeNextBarOpen {
		t.Fatalf("entry mode %v", got)
	}
}

func TestYAMLThenEnvPrecedence(t *testing.T) {
	yml := writeFile(t, "run.yaml", `
run:
  start: "2022-01-01"
  end: "2023-06-30"
  trials: 30
  seed: 7
space:
  - {name: period, type: int, min: 8, max: 12}
  - {name: mult, type: float, min: 1.0, max: 3.0}
backtest:
  initial_cash: 50000
  commission: 0.0005
  entry_mode: signal_close
data:
  source: csv
  csv_dir: /tmp/bars
`)
	env := writeFile(t, "test.env", "CZ_TRIALS=12\nCZ_WORKERS=3\n")
	t.Setenv("CZ_WORKERS", "5")

	cfg, err := Load(yml, env)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Run.Trials != 12 {
		t.Fatalf("env file should override yaml trials, got %d", cfg.Run.Trials)
	}
	if cfg.Run.Workers != 5 {
		t.Fatalf("process env should override env file, got %d", cfg.Run.Workers)
	}
	if len(cfg.Space) != 2 || cfg.Space[0].Max != 12 {
		t.Fatalf("space not loaded: %+v", cfg.Space)
	}
	opt := cfg.Optimizer()
	if opt.Seed != 7 || opt.Trials != 12 {
		t.Fatalf("optimizer config %+v", opt)
	}
	if cfg.EngineBacktest().EntryMode != engine.EntryModeSignalClose {
		t.Fatal("entry mode not applied")
	}
	start, end, err := cfg.Dates()
	if err != nil || start.Year() != 2022 || end.Month() != 6 {
		t.Fatalf("dates %v %v %v", start, end, err)
	}
}

func TestValidationFailures(t *testing.T) {
	cases := map[string]func(*Config){
		"zero trials":     func(c *Config) { c.Run.Trials = 0 },
		"bad sampler":     func(c *Config) { c.Run.Sampler = "grid" },
		"inverted dates":  func(c *Config) { c.Run.Start, c.Run.End = "2024-01-02", "2024-01-01" },
		"bad date":        func(c *Config) { c.Run.Start = "01/02/2024" },
		"inverted bounds": func(c *Config) { c.Space[0].Min, c.Space[0].Max = 20, 10 },
		"zero lot":        func(c *Config) { c.Strategy.MinTradeUnit = 0 },
		"no cash":         func(c *Config) { c.Backtest.InitialCash = 0 },
		"entry mode":      func(c *Config) { c.Backtest.EntryMode = "market" },
		"csv dir":         func(c *Config) { c.Data.CSVDir = "" },
		"clickhouse dsn":  func(c *Config) { c.Data.Source = "clickhouse" },
		"port":            func(c *Config) { c.Server.HTTPPort = 70000 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestBadEnvNumber(t *testing.T) {
	t.Setenv("CZ_TRIALS", "many")
	if _, err := Load("", filepath.Join(t.TempDir(), "none.env")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestUnreadableFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSecretsStayOutOfValues(t *testing.T) {
	cfg := Default()
	cfg.ClickHouse.Password = "hunter2"
	for k, v := range cfg.Values() {
		if v == "hunter2" {
			t.Fatalf("secret leaked under %s", k)
		}
	}
	if cfg.Secrets()["clickhouse_password"] != "hunter2" {
		t.Fatal("secret missing")
	}
}
