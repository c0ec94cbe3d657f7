package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/billingops/azure-billing-export/internal/azure"
	"github.com/billingops/azure-billing-export/internal/config"
	"github.com/billingops/azure-billing-export/internal/cost"
	"github.com/billingops/azure-billing-export/internal/dates"
	"github.com/billingops/azure-billing-export/internal/logger"
)

type fakeFetcher struct {
	segments []dates.Segment
	records  map[string][]cost.Record // keyed by segment start date
	fail     error
}

func (f *fakeFetcher) FetchSegment(_ context.Context, seg dates.Segment) ([]cost.Record, error) {
	f.segments = append(f.segments, seg)
	if f.fail != nil {
		return nil, &azure.FetchError{Segment: seg, Err: f.fail}
	}
	return f.records[seg.From.Format(dates.Layout)], nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		AuthType:          config.AuthTypeBearerToken,
		BearerToken:       "token",
		SubscriptionID:    "sub-1",
		ResourceGroup:     "ai-rg",
		Services:          []string{"/subscriptions/sub-1/resourcegroups/ai-rg/providers/microsoft.cognitiveservices/accounts/france-gpt4"},
		FromDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ToDate:            time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		OutputPath:        filepath.Join(t.TempDir(), "costs.csv"),
		MaxDaysPerRequest: 366,
		RequestTimeout:    5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Second,
	}
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{
		records: map[string][]cost.Record{
			"2024-01-01": {
				{Date: "2024-03-01", ResourceName: "france-gpt4", CostUSD: 4859.63, CostEUR: 4479.75},
			},
		},
	}

	if err := run(context.Background(), cfg, fetcher, testLogger()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(fetcher.segments) != 1 {
		t.Fatalf("Expected 1 segment fetch, got %d", len(fetcher.segments))
	}

	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 data row, got %d lines", len(lines))
	}
	if lines[0] != "Date;ResourceName;CostUSD;CostEUR" {
		t.Errorf("Header: got %q", lines[0])
	}
	if lines[1] != "2024-03-01;france-gpt4;4859,63;4479,75" {
		t.Errorf("Row: got %q", lines[1])
	}
}

func TestRun_MultipleSegmentsAggregated(t *testing.T) {
	cfg := testConfig(t)
	cfg.ToDate = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	fetcher := &fakeFetcher{
		records: map[string][]cost.Record{
			"2024-01-01": {
				{Date: "2024-03-01", ResourceName: "france-gpt4", CostUSD: 100, CostEUR: 92},
			},
			"2025-01-01": {
				{Date: "2025-02-01", ResourceName: "france-gpt4", CostUSD: 40, CostEUR: 37},
			},
		},
	}

	if err := run(context.Background(), cfg, fetcher, testLogger()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(fetcher.segments) != 2 {
		t.Fatalf("Expected 2 segment fetches, got %d", len(fetcher.segments))
	}

	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
}

func TestRun_FetchFailureWritesNothing(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{fail: errors.New("server error (500)")}

	err := run(context.Background(), cfg, fetcher, testLogger())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}

	var fetchErr *azure.FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("Expected *azure.FetchError, got %T", err)
	}
	if _, statErr := os.Stat(cfg.OutputPath); !os.IsNotExist(statErr) {
		t.Error("No CSV should be written when a segment fetch fails")
	}
}

func TestRun_ThresholdApplied(t *testing.T) {
	cfg := testConfig(t)
	cfg.CostThreshold = 10

	fetcher := &fakeFetcher{
		records: map[string][]cost.Record{
			"2024-01-01": {
				{Date: "2024-03-01", ResourceName: "cheap", CostUSD: 5, CostEUR: 4.6},
				{Date: "2024-03-01", ResourceName: "expensive", CostUSD: 250, CostEUR: 230},
			},
		},
	}

	if err := run(context.Background(), cfg, fetcher, testLogger()); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	data, err := os.ReadFile(cfg.OutputPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if strings.Contains(string(data), "cheap") {
		t.Error("Record below threshold should not appear in output")
	}
	if !strings.Contains(string(data), "expensive") {
		t.Error("Record above threshold missing from output")
	}
}
