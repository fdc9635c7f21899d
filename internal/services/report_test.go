package services

import (
	"testing"
	"time"

	"coinsight/internal/finance"
)

func TestBuildReport(t *testing.T) {
	result := &AnalysisResult{
		ID:           "11111111-2222-3333-4444-555555555555",
		Symbol:       "BTC",
		HorizonYears: 2,
		Amount:       10000,
		GeneratedAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		CurrentPrice: 50000,
		DiscountRate: 0.10,
		CashFlows:    []float64{-10000, 0, 13000},
		NPV:          744.63,
		IRR:          0.1401,
		IRRConverged: true,
		Beta:         finance.BetaResult{Beta: 1.8, Confidence: finance.ConfidenceMedium},
		MonteCarloBands: finance.Bands{
			P5: 30000, P25: 42000, Median: 55000, P75: 70000, P95: 95000, Paths: 2000,
		},
		Recommendation: "hold",
	}

	f, err := BuildReport(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 {
		t.Fatalf("expected 3 sheets, got %v", sheets)
	}

	symbol, err := f.GetCellValue("Summary", "B1")
	if err != nil {
		t.Fatalf("reading summary cell: %v", err)
	}
	if symbol != "BTC" {
		t.Errorf("expected BTC in B1, got %q", symbol)
	}

	// Cash-flow sheet: header plus one row per period.
	rows, err := f.GetRows("Cash Flows")
	if err != nil {
		t.Fatalf("reading cash-flow sheet: %v", err)
	}
	if len(rows) != len(result.CashFlows)+1 {
		t.Errorf("expected %d rows, got %d", len(result.CashFlows)+1, len(rows))
	}

	median, err := f.GetCellValue("Monte Carlo", "B4")
	if err != nil {
		t.Fatalf("reading Monte Carlo cell: %v", err)
	}
	if median != "55000" {
		t.Errorf("expected median 55000, got %q", median)
	}
}
