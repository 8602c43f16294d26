package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"chandelier-backtest/services/engine"
)

type Config struct {
	DSN          string `yaml:"dsn"` // host:port, optionally prefixed with clickhouse://
	HTTPURL      string `yaml:"http_url"`
	Database     string `yaml:"database"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	BarsTable    string `yaml:"bars_table"`
	ResultsTable string `yaml:"results_table"`
}

func (c Config) withDefaults() Config {
	if c.Database == "" {
		c.Database = "backtest"
	}
	if c.BarsTable == "" {
		c.BarsTable = "daily_bars"
	}
	if c.ResultsTable == "" {
		c.ResultsTable = "optimization_results"
	}
	return c
}

// Client wraps a native ClickHouse connection.
type Client struct {
	conn   driver.Conn
	cfg    Config
	logger *zap.Logger
}

func dsnHost(dsn string) string {
	host := strings.TrimPrefix(dsn, "clickhouse://")
	host = strings.TrimPrefix(host, "tcp://")
	if i := strings.Index(host, "/"); i >= 0 {
		host = host[:i]
	}
	return host
}

// NewClient opens and pings a connection.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := ch.Open(&ch.Options{
		Addr: []string{dsnHost(cfg.DSN)},
		Auth: ch.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: ch.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{conn: conn, cfg: cfg, logger: logger}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) table(name string) string { return c.cfg.Database + "." + name }

// EnsureSchema creates the database, bars, results and ledger tables.
func (c *Client) EnsureSchema(ctx context.Context) error {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.cfg.Database)}
	stmts = append(stmts, schemaDDL(c.cfg)...)
	for _, s := range stmts {
		if err := c.conn.Exec(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func schemaDDL(cfg Config) []string {
	return []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol LowCardinality(String),
			date Date,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			amount Nullable(Float64),
			pct_change Nullable(Float64),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, date)`, cfg.Database, cfg.BarsTable),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			job_id String,
			symbol LowCardinality(String),
			period Int32,
			mult Float64,
			investment_fraction Float64,
			max_pyramiding Int32,
			sharpe_ratio Float64,
			max_drawdown Float64,
			win_rate Float64,
			total_return Float64,
			last_signal Int8,
			latest_amount Float64,
			total_trades Int32,
			trials Int32,
			failed_trials Int32,
			study_id String,
			created_at DateTime64(3)
		)
		ENGINE = MergeTree
		ORDER BY (job_id, symbol)`, cfg.Database, cfg.ResultsTable),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.ingest_ledger (
			symbol String,
			checksum String,
			row_count UInt64,
			source String,
			inserted_at DateTime DEFAULT now()
		)
		ENGINE = ReplacingMergeTree
		ORDER BY (symbol, checksum)`, cfg.Database),
	}
}

func barsQuery(cfg Config) string {
	return fmt.Sprintf(`
		SELECT date, open, high, low, close, volume, amount, pct_change
		FROM %s.%s FINAL
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date`, cfg.Database, cfg.BarsTable)
}

// QueryBars loads bars for symbol within [start, end]. A zero end means today.
func (c *Client) QueryBars(ctx context.Context, symbol string, start, end time.Time) ([]engine.Bar, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	rows, err := c.conn.Query(ctx, barsQuery(c.cfg), symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query bars %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []engine.Bar
	for rows.Next() {
		var (
			b         engine.Bar
			amount    *float64
			pctChange *float64
		)
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &amount, &pctChange); err != nil {
			return nil, fmt.Errorf("scan bars %s: %w", symbol, err)
		}
		b.Amount, b.PctChange = amount, pctChange
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Symbols lists every symbol with stored bars.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	rows, err := c.conn.Query(ctx, fmt.Sprintf("SELECT DISTINCT symbol FROM %s ORDER BY symbol", c.table(c.cfg.BarsTable)))
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
