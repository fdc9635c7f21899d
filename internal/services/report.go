package services

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// BuildReport renders an analysis into an xlsx workbook with a summary sheet,
// the cash-flow schedule and the Monte Carlo bands.
func BuildReport(result *AnalysisResult) (*excelize.File, error) {
	f := excelize.NewFile()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, fmt.Errorf("renaming summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Symbol", result.Symbol},
		{"Generated", result.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Horizon (years)", result.HorizonYears},
		{"Amount", result.Amount},
		{"Current Price", result.CurrentPrice},
		{"24h Change", result.Change24h},
		{"Market Cap", result.MarketCap},
		{"Historical CAGR", result.HistoricalCAGR},
		{"Projected Price", result.ProjectedPrice},
		{"Beta", result.Beta.Beta},
		{"Beta Confidence", result.Beta.Confidence},
		{"R2", result.Beta.R2},
		{"Benchmark", result.Benchmark},
		{"Risk-Free Rate", result.RiskFreeRate},
		{"Market Premium", result.MarketPremium},
		{"Discount Rate", result.DiscountRate},
		{"NPV", result.NPV},
		{"IRR", result.IRR},
		{"IRR Converged", result.IRRConverged},
		{"ROI", result.ROI},
		{"Annualized Volatility", result.Volatility},
		{"Sharpe Ratio", result.SharpeRatio},
		{"Max Drawdown", result.MaxDrawdown},
		{"VaR 95%", result.ValueAtRisk95},
		{"Expected Shortfall 95%", result.ExpectedShortfall},
		{"MVRV", result.MVRV},
		{"AVIV", result.AVIV},
		{"Recommendation", result.Recommendation},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}

	const cashflows = "Cash Flows"
	if _, err := f.NewSheet(cashflows); err != nil {
		return nil, fmt.Errorf("creating cash-flow sheet: %w", err)
	}
	header := []interface{}{"Period", "Cash Flow", "Discounted"}
	if err := f.SetSheetRow(cashflows, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing cash-flow header: %w", err)
	}
	for t, cf := range result.CashFlows {
		discounted := cf
		for p := 0; p < t; p++ {
			discounted /= 1 + result.DiscountRate
		}
		row := []interface{}{t, cf, discounted}
		cell, _ := excelize.CoordinatesToCellName(1, t+2)
		if err := f.SetSheetRow(cashflows, cell, &row); err != nil {
			return nil, fmt.Errorf("writing cash-flow row %d: %w", t, err)
		}
	}

	const bands = "Monte Carlo"
	if _, err := f.NewSheet(bands); err != nil {
		return nil, fmt.Errorf("creating Monte Carlo sheet: %w", err)
	}
	bandRows := [][]interface{}{
		{"Percentile", "Price"},
		{"P5", result.MonteCarloBands.P5},
		{"P25", result.MonteCarloBands.P25},
		{"Median", result.MonteCarloBands.Median},
		{"P75", result.MonteCarloBands.P75},
		{"P95", result.MonteCarloBands.P95},
		{"Paths", result.MonteCarloBands.Paths},
	}
	for i, row := range bandRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(bands, cell, &row); err != nil {
			return nil, fmt.Errorf("writing Monte Carlo row %d: %w", i, err)
		}
	}

	return f, nil
}
