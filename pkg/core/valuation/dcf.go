package valuation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ProjectionInputs encapsulates the forward-looking assumptions for a DCF valuation
type ProjectionInputs struct {
	RevenueProjections []float64 `json:"revenue_projections"` // Years 1..N
	OperatingMargins   []float64 `json:"operating_margins"`   // Last value reused if shorter than revenue
	TaxRate            float64   `json:"tax_rate"`
	DepreciationPct    float64   `json:"depreciation_pct"` // % of revenue
	CapexPct           float64   `json:"capex_pct"`        // % of revenue
	NWCPctDelta        float64   `json:"nwc_pct_delta"`    // % of revenue change
	TerminalGrowth     float64   `json:"terminal_growth"`
	WACC               float64   `json:"wacc"`
	CurrentRevenue     float64   `json:"current_revenue"` // Year 0
}

// DCFResult holds the valuation outputs
type DCFResult struct {
	IntrinsicValuePerShare float64   `json:"intrinsic_value_per_share"`
	EnterpriseValue        float64   `json:"enterprise_value"`
	EquityValue            float64   `json:"equity_value"`
	PVFCF                  float64   `json:"pv_fcf"`
	TerminalValue          float64   `json:"terminal_value"`
	PVTerminal             float64   `json:"pv_terminal"`
	FCFProjections         []float64 `json:"fcf_projections"`
	DiscountFactors        []float64 `json:"discount_factors"`
	WACC                   float64   `json:"wacc"`
	TerminalGrowth         float64   `json:"terminal_growth"`
}

// TerminalShare is the fraction of enterprise value coming from the terminal value
func (r DCFResult) TerminalShare() float64 {
	return r.PVTerminal / r.EnterpriseValue
}

// IsFinite reports whether every headline figure is a real number
func (r DCFResult) IsFinite() bool {
	for _, v := range []float64{r.IntrinsicValuePerShare, r.EnterpriseValue, r.EquityValue, r.PVFCF, r.PVTerminal} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// marginAt returns the margin for year index i, reusing the last one when the vector is short
func marginAt(margins []float64, i int) float64 {
	if i < len(margins) {
		return margins[i]
	}
	if len(margins) == 0 {
		return 0
	}
	return margins[len(margins)-1]
}

// CalculateDCF performs a standard 2-stage DCF analysis.
//
// Nothing is validated here. shares == 0 or WACC == terminal growth yield
// Inf/NaN; use ProjectionInputs.Validate and ValidateShares beforehand when
// the inputs are untrusted.
func CalculateDCF(in ProjectionInputs, netDebt, sharesOutstanding float64) DCFResult {
	n := len(in.RevenueProjections)
	fcfs := make([]float64, n)
	factors := make([]float64, n)

	prior := in.CurrentRevenue
	for i, revenue := range in.RevenueProjections {
		margin := marginAt(in.OperatingMargins, i)
		fcfs[i] = FreeCashFlow(revenue, margin, in.TaxRate, in.DepreciationPct, in.CapexPct, in.NWCPctDelta, prior)
		factors[i] = DiscountFactor(in.WACC, i+1)
		prior = revenue
	}

	pvFCF := 0.0
	if n > 0 {
		pvFCF = floats.Dot(fcfs, factors)
	}

	finalFCF := 0.0
	if n > 0 {
		finalFCF = fcfs[n-1]
	}

	// Terminal Value (Gordon Growth), discounted from the end of year N
	tv := GordonTerminalValue(finalFCF, in.WACC, in.TerminalGrowth)
	pvTerminal := tv * DiscountFactor(in.WACC, n)

	ev := pvFCF + pvTerminal
	eqVal := ev - netDebt

	return DCFResult{
		IntrinsicValuePerShare: eqVal / sharesOutstanding,
		EnterpriseValue:        ev,
		EquityValue:            eqVal,
		PVFCF:                  pvFCF,
		TerminalValue:          tv,
		PVTerminal:             pvTerminal,
		FCFProjections:         fcfs,
		DiscountFactors:        factors,
		WACC:                   in.WACC,
		TerminalGrowth:         in.TerminalGrowth,
	}
}
