package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"equity-signal-engine/config"
	"equity-signal-engine/internal/database"
	"equity-signal-engine/internal/pipeline"
	"equity-signal-engine/internal/timeframe"
	"equity-signal-engine/internal/universe"
)

// skipFetcher reports every ticker as a data blackout so scan tests run
// without a provider
type skipFetcher struct{}

func (skipFetcher) Fetch(ticker string) (*timeframe.Snapshot, error) {
	return nil, timeframe.ErrNoData
}

type nopStore struct{}

func (nopStore) SaveSignalWithIndicators(ctx context.Context, signal *database.StockSignal, records []database.IndicatorRecord) error {
	return nil
}

func (nopStore) DeleteAllSignals(ctx context.Context) error { return nil }

func newScanTestServer() *Server {
	cfg := &config.Config{
		CoordinatorConfig: config.CoordinatorConfig{Mode: config.ModeLive},
		ScoringConfig: config.ScoringConfig{
			GateThreshold:    70,
			StrengthWeight:   0.30,
			ConfidenceWeight: 0.35,
			QualityWeight:    0.25,
			RiskWeight:       0.10,
		},
	}
	orchestrator := pipeline.NewOrchestrator(skipFetcher{}, nopStore{}, nil, nil, cfg, zerolog.Nop())
	stocks := universe.NewStaticProvider([]string{"AAPL|Apple Inc|Technology", "MSFT|Microsoft|Technology"})
	return NewServer(config.ServerConfig{}, nil, orchestrator, nil, nil, stocks, zerolog.Nop())
}

func postScan(t *testing.T, s *Server, req ScanRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/api/scan", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httpReq)
	return w
}

// TestScanEchoesBatchNumber tests that the caller's batch ordinal comes back
// on the summary
func TestScanEchoesBatchNumber(t *testing.T) {
	s := newScanTestServer()

	w := postScan(t, s, ScanRequest{StartIndex: 0, EndIndex: 2, BatchNumber: 3, Mode: "append"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var summary pipeline.BatchSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Bad summary payload: %v", err)
	}
	if summary.BatchNumber != 3 {
		t.Errorf("Summary should echo batch number 3, got %d", summary.BatchNumber)
	}
	if summary.Processed != 2 || summary.Skipped != 2 {
		t.Errorf("Both stocks should process as skips, got processed=%d skipped=%d",
			summary.Processed, summary.Skipped)
	}
}

// TestScanRejectsBadWindow tests window validation
func TestScanRejectsBadWindow(t *testing.T) {
	s := newScanTestServer()

	w := postScan(t, s, ScanRequest{StartIndex: 5, EndIndex: 5})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Empty window should 400, got %d", w.Code)
	}
}

// TestScanRejectsUnknownMode tests mode validation
func TestScanRejectsUnknownMode(t *testing.T) {
	s := newScanTestServer()

	w := postScan(t, s, ScanRequest{StartIndex: 0, EndIndex: 2, Mode: "upsert"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Unknown mode should 400, got %d", w.Code)
	}
}
