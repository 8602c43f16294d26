package clickhouse

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"chandelier-backtest/services/results"
)

// BatchClient streams optimization records to ClickHouse over HTTP as gzip
// compressed JSONEachRow. It is the sink used when only the HTTP port is
// reachable.
type BatchClient struct {
	baseURL    string
	table      string
	username   string
	password   string
	jobID      string
	httpClient *http.Client
	buffer     []RecordRow
	batchSize  int
}

type RecordRow struct {
	JobID string `json:"job_id"`
	results.OptimizationRecord
	CreatedAt string `json:"created_at"`
}

func NewBatchClient(cfg Config, jobID string, batchSize int) *BatchClient {
	cfg = cfg.withDefaults()
	if batchSize <= 0 {
		batchSize = 500
	}
	return &BatchClient{
		baseURL:   cfg.HTTPURL,
		table:     cfg.Database + "." + cfg.ResultsTable,
		username:  cfg.Username,
		password:  cfg.Password,
		jobID:     jobID,
		batchSize: batchSize,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		buffer: make([]RecordRow, 0, batchSize),
	}
}

func (c *BatchClient) Add(ctx context.Context, r results.OptimizationRecord) error {
	c.buffer = append(c.buffer, RecordRow{
		JobID:              c.jobID,
		OptimizationRecord: r,
		CreatedAt:          time.Now().UTC().Format("2006-01-02 15:04:05"),
	})
	if len(c.buffer) >= c.batchSize {
		return c.Flush(ctx)
	}
	return nil
}

func (c *BatchClient) Flush(ctx context.Context) error {
	if len(c.buffer) == 0 {
		return nil
	}

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gzWriter)
	for _, row := range c.buffer {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("gzip error: %w", err)
	}

	query := fmt.Sprintf("INSERT INTO %s FORMAT JSONEachRow", c.table)
	settings := "input_format_skip_unknown_fields=1&date_time_input_format=best_effort"
	endpoint := fmt.Sprintf("%s/?query=%s&%s", c.baseURL, url.QueryEscape(query), settings)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "gzip")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("clickhouse error %d: %s", resp.StatusCode, string(body))
	}

	c.buffer = c.buffer[:0]
	return nil
}

func (c *BatchClient) Close(ctx context.Context) error {
	return c.Flush(ctx)
}
