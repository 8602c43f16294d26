package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "chandelier-backtest/proto"
	"chandelier-backtest/services/config"
	"chandelier-backtest/services/engine"
)

type memSource map[string]engine.PriceSeries

func (m memSource) Fetch(_ context.Context, symbol string, start, end time.Time) (engine.PriceSeries, error) {
	if s, ok := m[symbol]; ok {
		return s.Between(start, end), nil
	}
	return engine.PriceSeries{Symbol: symbol}, nil
}

func (m memSource) Symbols(context.Context) ([]string, error) { return nil, nil }

func walk(symbol string, n int, seed int64) engine.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	day := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]engine.Bar, n)
	price := 20.0
	for i := range bars {
		open := price
		price *= 1 + rng.NormFloat64()*0.02
		hi, lo := open, price
		if lo > hi {
			hi, lo = lo, hi
		}
		bars[i] = engine.Bar{Date: day.AddDate(0, 0, i), Open: open, High: hi * 1.01, Low: lo * 0.99, Close: price, Volume: 1e5}
	}
	return engine.PriceSeries{Symbol: symbol, Bars: bars}
}

func newTestService(t *testing.T) *OptimizerService {
	t.Helper()
	cfg := config.Default()
	cfg.Run.Start = "2023-01-01"
	cfg.Run.End = "2024-12-31"
	cfg.Run.Trials = 6
	cfg.Run.Workers = 2
	src := memSource{
		"600000": walk("600000", 220, 1),
		"000001": walk("000001", 220, 2),
	}
	return NewOptimizerService(cfg, src, zaptest.NewLogger(t))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHTTPHealth(t *testing.T) {
	r := newHTTPRouter(newTestService(t))
	w := doJSON(t, r, http.MethodGet, "/api/v1/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health returned %d", w.Code)
	}
}

func TestHTTPBacktest(t *testing.T) {
	r := newHTTPRouter(newTestService(t))

	w := doJSON(t, r, http.MethodPost, "/api/v1/backtest", pb.BacktestRequest{Symbol: "600000"})
	if w.Code != http.StatusOK {
		t.Fatalf("backtest returned %d: %s", w.Code, w.Body.String())
	}
	var resp pb.BacktestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Bars != 220 || resp.NoData || resp.Metrics == nil {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.LastSignal < -3 || resp.LastSignal > 3 {
		t.Fatalf("signal %d outside domain", resp.LastSignal)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/backtest", pb.BacktestRequest{Symbol: "999999"})
	if w.Code != http.StatusOK {
		t.Fatalf("missing symbol returned %d", w.Code)
	}
	resp = pb.BacktestResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.NoData {
		t.Fatal("expected no_data for unknown symbol")
	}
}

func TestHTTPBacktestRejectsBadInput(t *testing.T) {
	r := newHTTPRouter(newTestService(t))
	cases := map[string]pb.BacktestRequest{
		"no symbol":  {},
		"zero mult":  {Symbol: "600000", Params: &pb.StrategyParams{Period: 14, InvestmentFraction: 0.5}},
		"bad window": {Symbol: "600000", Start: "2024-02-01", End: "2024-01-01"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			if w := doJSON(t, r, http.MethodPost, "/api/v1/backtest", req); w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestHTTPOptimizeSortedBySymbol(t *testing.T) {
	r := newHTTPRouter(newTestService(t))
	seed := int64(3)
	w := doJSON(t, r, http.MethodPost, "/api/v1/optimize", pb.OptimizeRequest{
		Symbols: []string{"600000", "888888", "000001"},
		Seed:    &seed,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("optimize returned %d: %s", w.Code, w.Body.String())
	}
	var resp pb.OptimizeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Records) != 2 || resp.Records[0].Symbol != "000001" || resp.Records[1].Symbol != "600000" {
		t.Fatalf("unexpected records %+v", resp.Records)
	}
	if len(resp.Failures) != 1 || resp.Failures[0].Symbol != "888888" {
		t.Fatalf("unexpected failures %+v", resp.Failures)
	}
	for _, rec := range resp.Records {
		if rec.Trials != 6 || rec.Period < 10 || rec.Period > 20 {
			t.Fatalf("record outside search space: %+v", rec)
		}
	}
}

func dialBufconn(t *testing.T, svc *OptimizerService) pb.OptimizerServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := newGRPCServer(svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return pb.NewOptimizerServiceClient(conn)
}

func TestGRPCBacktestAndOptimize(t *testing.T) {
	client := dialBufconn(t, newTestService(t))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bt, err := client.Backtest(ctx, &pb.BacktestRequest{Symbol: "000001", EntryMode: "signal_close"})
	if err != nil {
		t.Fatal(err)
	}
	if bt.Symbol != "000001" || bt.Bars != 220 {
		t.Fatalf("unexpected backtest %+v", bt)
	}

	opt, err := client.Optimize(ctx, &pb.OptimizeRequest{Symbols: []string{"600000"}, Trials: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(opt.Records) != 1 || opt.Records[0].Trials != 4 {
		t.Fatalf("unexpected optimize %+v", opt)
	}

	_, err = client.Optimize(ctx, &pb.OptimizeRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
