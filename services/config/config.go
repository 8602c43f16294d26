// Package config loads run configuration from an optional .env file, an
// optional YAML file and CZ_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"chandelier-backtest/services/clickhouse"
	"chandelier-backtest/services/engine"
	"chandelier-backtest/services/optimizer"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const dateLayout = "2006-01-02"

type RunConfig struct {
	Start    string   `yaml:"start"` // YYYY-MM-DD
	End      string   `yaml:"end"`   // YYYY-MM-DD, empty means today
	Trials   int      `yaml:"trials"`
	Workers  int      `yaml:"workers"` // 0 means one per CPU
	Seed     int64    `yaml:"seed"`
	Sampler  string   `yaml:"sampler"`
	Symbols  []string `yaml:"symbols"`  // empty means every symbol the source lists
	Universe string   `yaml:"universe"` // optional code/name CSV, filtered before use
}

type BacktestConfig struct {
	InitialCash  float64 `yaml:"initial_cash"`
	Commission   float64 `yaml:"commission"`
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	AnnualFactor float64 `yaml:"annual_factor"`
	EntryMode    string  `yaml:"entry_mode"` // next_open or signal_close
}

type DataConfig struct {
	Source string `yaml:"source"` // csv or clickhouse
	CSVDir string `yaml:"csv_dir"`
}

type OutputConfig struct {
	CSV        string `yaml:"csv"`
	Arrow      string `yaml:"arrow"`
	Manifest   string `yaml:"manifest"`
	ClickHouse bool   `yaml:"clickhouse"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
	GRPCPort int `yaml:"grpc_port"`
}

type Config struct {
	Environment string                `yaml:"environment"`
	Run         RunConfig             `yaml:"run"`
	Space       optimizer.SearchSpace `yaml:"space"`
	Strategy    engine.Params         `yaml:"strategy"`
	Backtest    BacktestConfig        `yaml:"backtest"`
	Data        DataConfig            `yaml:"data"`
	ClickHouse  clickhouse.Config     `yaml:"clickhouse"`
	Output      OutputConfig          `yaml:"output"`
	Server      ServerConfig          `yaml:"server"`
}

func Default() *Config {
	bt := engine.DefaultBacktestConfig()
	opt := optimizer.DefaultConfig()
	return &Config{
		Environment: "dev",
		Run: RunConfig{
			Start:   "2020-01-01",
			Trials:  opt.Trials,
			Seed:    opt.Seed,
			Sampler: opt.Sampler,
		},
		Space:    opt.Space,
		Strategy: engine.DefaultParams(),
		Backtest: BacktestConfig{
			InitialCash:  bt.InitialCash,
			Commission:   bt.Commission,
			RiskFreeRate: bt.RiskFreeRate,
			AnnualFactor: bt.AnnualFactor,
			EntryMode:    bt.EntryMode.String(),
		},
		Data:   DataConfig{Source: "csv", CSVDir: "data"},
		Output: OutputConfig{CSV: "optimization_results.csv"},
		Server: ServerConfig{HTTPPort: 8080, GRPCPort: 9091},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. envFiles default to ".env"; missing
// env files are ignored. Process environment wins over env files.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	dotenv := map[string]string{}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidConfig, f, err)
		}
		for k, v := range vals {
			dotenv[k] = v
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	var firstErr error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
				}
				return
			}
			*dst = n
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v)
				}
				return
			}
			*dst = f
		}
	}

	str("CZ_ENV", &c.Environment)
	str("CZ_START", &c.Run.Start)
	str("CZ_END", &c.Run.End)
	num("CZ_TRIALS", &c.Run.Trials)
	num("CZ_WORKERS", &c.Run.Workers)
	if v, ok := lookup("CZ_SEED"); ok {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: CZ_SEED=%q is not an integer", ErrInvalidConfig, v)
		}
		c.Run.Seed = seed
	}
	str("CZ_SAMPLER", &c.Run.Sampler)
	if v, ok := lookup("CZ_SYMBOLS"); ok {
		c.Run.Symbols = splitList(v)
	}
	str("CZ_UNIVERSE", &c.Run.Universe)
	if v, ok := lookup("CZ_MIN_TRADE_UNIT"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: CZ_MIN_TRADE_UNIT=%q is not an integer", ErrInvalidConfig, v)
		}
		c.Strategy.MinTradeUnit = n
	}
	flt("CZ_INITIAL_CASH", &c.Backtest.InitialCash)
	flt("CZ_COMMISSION", &c.Backtest.Commission)
	flt("CZ_RISK_FREE_RATE", &c.Backtest.RiskFreeRate)
	str("CZ_ENTRY_MODE", &c.Backtest.EntryMode)
	str("CZ_DATA_SOURCE", &c.Data.Source)
	str("CZ_CSV_DIR", &c.Data.CSVDir)
	str("CZ_CLICKHOUSE_DSN", &c.ClickHouse.DSN)
	str("CZ_CLICKHOUSE_HTTP_URL", &c.ClickHouse.HTTPURL)
	str("CZ_CLICKHOUSE_DATABASE", &c.ClickHouse.Database)
	str("CZ_CLICKHOUSE_USER", &c.ClickHouse.Username)
	str("CZ_CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("CZ_OUTPUT_CSV", &c.Output.CSV)
	str("CZ_OUTPUT_ARROW", &c.Output.Arrow)
	num("CZ_HTTP_PORT", &c.Server.HTTPPort)
	num("CZ_GRPC_PORT", &c.Server.GRPCPort)
	return firstErr
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate reports the first configuration problem, wrapped in
// ErrInvalidConfig.
func (c *Config) Validate() error {
	start, end, err := c.Dates()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidConfig, c.Run.End, c.Run.Start)
	}
	if c.Run.Trials < 1 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidConfig, c.Run.Trials)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if c.Run.Sampler != "tpe" && c.Run.Sampler != "random" {
		return fmt.Errorf("%w: unknown sampler %q", ErrInvalidConfig, c.Run.Sampler)
	}
	if err := c.Space.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("%w: initial_cash must be positive", ErrInvalidConfig)
	}
	if c.Backtest.Commission < 0 || c.Backtest.Commission >= 1 {
		return fmt.Errorf("%w: commission %v outside [0,1)", ErrInvalidConfig, c.Backtest.Commission)
	}
	if m := c.Backtest.EntryMode; m != "next_open" && m != "signal_close" {
		return fmt.Errorf("%w: unknown entry_mode %q", ErrInvalidConfig, m)
	}
	switch c.Data.Source {
	case "csv":
		if c.Data.CSVDir == "" {
			return fmt.Errorf("%w: csv source needs csv_dir", ErrInvalidConfig)
		}
	case "clickhouse":
		if c.ClickHouse.DSN == "" {
			return fmt.Errorf("%w: clickhouse source needs a dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown data source %q", ErrInvalidConfig, c.Data.Source)
	}
	if c.Output.ClickHouse && c.ClickHouse.DSN == "" {
		return fmt.Errorf("%w: clickhouse output needs a dsn", ErrInvalidConfig)
	}
	for _, p := range []int{c.Server.HTTPPort, c.Server.GRPCPort} {
		if p < 0 || p > 65535 {
			return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, p)
		}
	}
	return nil
}

// Dates parses the run window. An empty end is today (UTC).
func (c *Config) Dates() (start, end time.Time, err error) {
	start, err = time.Parse(dateLayout, c.Run.Start)
	if err != nil {
		return start, end, fmt.Errorf("%w: start %q: %v", ErrInvalidConfig, c.Run.Start, err)
	}
	if c.Run.End == "" {
		now := time.Now().UTC()
		return start, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	end, err = time.Parse(dateLayout, c.Run.End)
	if err != nil {
		return start, end, fmt.Errorf("%w: end %q: %v", ErrInvalidConfig, c.Run.End, err)
	}
	return start, end, nil
}

func (c *Config) EngineBacktest() engine.BacktestConfig {
	return engine.BacktestConfig{
		InitialCash:  c.Backtest.InitialCash,
		Commission:   c.Backtest.Commission,
		RiskFreeRate: c.Backtest.RiskFreeRate,
		AnnualFactor: c.Backtest.AnnualFactor,
		EntryMode:    engine.ParseEntryMode(c.Backtest.EntryMode),
	}
}

func (c *Config) Optimizer() optimizer.Config {
	return optimizer.Config{
		Trials:  c.Run.Trials,
		Seed:    c.Run.Seed,
		Sampler: c.Run.Sampler,
		Space:   c.Space,
		Base:    c.Strategy,
	}
}

// Values flattens the non-secret settings for a run manifest.
func (c *Config) Values() map[string]string {
	v := map[string]string{
		"start":          c.Run.Start,
		"end":            c.Run.End,
		"trials":         strconv.Itoa(c.Run.Trials),
		"workers":        strconv.Itoa(c.Run.Workers),
		"seed":           strconv.FormatInt(c.Run.Seed, 10),
		"sampler":        c.Run.Sampler,
		"min_trade_unit": strconv.FormatInt(c.Strategy.MinTradeUnit, 10),
		"use_close":      strconv.FormatBool(c.Strategy.UseClose),
		"initial_cash":   strconv.FormatFloat(c.Backtest.InitialCash, 'f', -1, 64),
		"commission":     strconv.FormatFloat(c.Backtest.Commission, 'f', -1, 64),
		"risk_free_rate": strconv.FormatFloat(c.Backtest.RiskFreeRate, 'f', -1, 64),
		"entry_mode":     c.Backtest.EntryMode,
		"data_source":    c.Data.Source,
	}
	for _, p := range c.Space {
		v["space."+p.Name] = strconv.FormatFloat(p.Min, 'f', -1, 64) + ".." + strconv.FormatFloat(p.Max, 'f', -1, 64)
	}
	return v
}

func (c *Config) Secrets() map[string]string {
	return map[string]string{"clickhouse_password": c.ClickHouse.Password}
}
