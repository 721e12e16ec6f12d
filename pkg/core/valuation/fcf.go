package valuation

import "math"

// FreeCashFlow computes unlevered FCF for one projection year.
//
// FORMULA: FCF = EBIT × (1 - T) + D&A - CapEx - ΔNWC
//
// Where:
//   - EBIT = revenue × margin
//   - D&A, CapEx = revenue × their % of revenue
//   - ΔNWC = (revenue - priorRevenue) × nwcPctDelta
func FreeCashFlow(revenue, margin, taxRate, depreciationPct, capexPct, nwcPctDelta, priorRevenue float64) float64 {
	nopat := revenue * margin * (1 - taxRate)
	depreciation := revenue * depreciationPct
	capex := revenue * capexPct
	nwcChange := (revenue - priorRevenue) * nwcPctDelta
	return nopat + depreciation - capex - nwcChange
}

// DiscountFactor returns 1 / (1 + wacc)^year (end-of-period convention)
func DiscountFactor(wacc float64, year int) float64 {
	return 1 / math.Pow(1+wacc, float64(year))
}

// GordonTerminalValue capitalises the final-year FCF at a perpetual growth rate.
//
// FORMULA: TV = FCF_N × (1 + g) / (WACC - g)
//
// wacc == g divides by zero; the caller is responsible for rejecting that.
func GordonTerminalValue(finalFCF, wacc, terminalGrowth float64) float64 {
	return finalFCF * (1 + terminalGrowth) / (wacc - terminalGrowth)
}
