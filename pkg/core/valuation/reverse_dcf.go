package valuation

import "math"

// Bisection search bounds and stopping rules for the implied growth solver
const (
	MinImpliedGrowth     = -0.20
	MaxImpliedGrowth     = 0.50
	ImpliedGrowthTol     = 1e-4 // Relative EV error
	ImpliedGrowthMaxIter = 50

	DefaultProjectionYears = 5
)

// ReverseDCFInputs describes the market price to back-solve and the DCF model to run it through
type ReverseDCFInputs struct {
	CurrentPrice      float64  `json:"current_price"`
	SharesOutstanding float64  `json:"shares_outstanding"`
	NetDebt           float64  `json:"net_debt"`
	CurrentRevenue    float64  `json:"current_revenue"`
	CurrentMargin     float64  `json:"current_margin"`
	TerminalMargin    *float64 `json:"terminal_margin,omitempty"` // nil: hold current margin

	TaxRate         float64 `json:"tax_rate"`
	DepreciationPct float64 `json:"depreciation_pct"`
	CapexPct        float64 `json:"capex_pct"`
	NWCPctDelta     float64 `json:"nwc_pct_delta"`
	WACC            float64 `json:"wacc"`
	TerminalGrowth  float64 `json:"terminal_growth"`
	ProjectionYears int     `json:"projection_years"`
}

// DefaultReverseDCFInputs returns the model assumptions used when a caller only knows the market side
func DefaultReverseDCFInputs() ReverseDCFInputs {
	return ReverseDCFInputs{
		TaxRate:         0.21,
		DepreciationPct: 0.03,
		CapexPct:        0.04,
		NWCPctDelta:     0.10,
		WACC:            0.10,
		TerminalGrowth:  0.025,
		ProjectionYears: DefaultProjectionYears,
	}
}

// ReverseDCFResult holds the growth rate the market price implies
type ReverseDCFResult struct {
	ImpliedRevenueCAGR  float64  `json:"implied_revenue_cagr"`
	MarketCap           float64  `json:"market_cap"`
	EnterpriseValue     float64  `json:"enterprise_value"`
	ImpliedRevenueYearN float64  `json:"implied_revenue_year_n"`
	ImpliedFCFYearN     float64  `json:"implied_fcf_year_n"`
	TerminalMargin      float64  `json:"terminal_margin"`
	ProjectionYears     int      `json:"projection_years"`
	IsReasonable        bool     `json:"is_reasonable"`
	ReasonablenessNotes []string `json:"reasonableness_notes"`
	Converged           bool     `json:"converged"`
	Iterations          int      `json:"iterations"`
}

func (in ReverseDCFInputs) years() int {
	if in.ProjectionYears <= 0 {
		return DefaultProjectionYears
	}
	return in.ProjectionYears
}

func (in ReverseDCFInputs) terminalMargin() float64 {
	if in.TerminalMargin != nil {
		return *in.TerminalMargin
	}
	return in.CurrentMargin
}

// InterpolatedMargin is the operating margin in year (1..years), moving linearly from current to terminal
func InterpolatedMargin(current, terminal float64, year, years int) float64 {
	return current + (terminal-current)*float64(year)/float64(years)
}

// EnterpriseValueAtGrowth runs the DCF with revenue compounding at a flat growth rate
func EnterpriseValueAtGrowth(in ReverseDCFInputs, growth float64) float64 {
	years := in.years()
	tm := in.terminalMargin()

	pv := 0.0
	fcf := 0.0
	prior := in.CurrentRevenue
	for year := 1; year <= years; year++ {
		revenue := prior * (1 + growth)
		margin := InterpolatedMargin(in.CurrentMargin, tm, year, years)
		fcf = FreeCashFlow(revenue, margin, in.TaxRate, in.DepreciationPct, in.CapexPct, in.NWCPctDelta, prior)
		pv += fcf * DiscountFactor(in.WACC, year)
		prior = revenue
	}

	tv := GordonTerminalValue(fcf, in.WACC, in.TerminalGrowth)
	return pv + tv*DiscountFactor(in.WACC, years)
}

// CalculateImpliedGrowth back-solves the revenue CAGR that reproduces the market's enterprise value.
//
// Bisection over [MinImpliedGrowth, MaxImpliedGrowth] assuming EV rises with growth.
// If the tolerance is never met the midpoint of the final bounds is returned
// with Converged=false; that is not treated as an error.
func CalculateImpliedGrowth(in ReverseDCFInputs) ReverseDCFResult {
	marketCap := in.CurrentPrice * in.SharesOutstanding
	targetEV := marketCap + in.NetDebt

	lo, hi := MinImpliedGrowth, MaxImpliedGrowth
	growth := (lo + hi) / 2
	converged := false
	iterations := 0

	for iterations < ImpliedGrowthMaxIter {
		iterations++
		mid := (lo + hi) / 2
		ev := EnterpriseValueAtGrowth(in, mid)

		if math.Abs(ev-targetEV)/math.Abs(targetEV) < ImpliedGrowthTol {
			growth = mid
			converged = true
			break
		}

		if ev < targetEV {
			lo = mid
		} else {
			hi = mid
		}
		growth = (lo + hi) / 2
	}

	// Year-N figures at the terminal margin, no NWC build in the terminal year
	years := in.years()
	tm := in.terminalMargin()
	revenueN := in.CurrentRevenue * math.Pow(1+growth, float64(years))
	fcfN := FreeCashFlow(revenueN, tm, in.TaxRate, in.DepreciationPct, in.CapexPct, 0, revenueN)

	reasonable, notes := AssessReasonableness(growth, tm)

	return ReverseDCFResult{
		ImpliedRevenueCAGR:  growth,
		MarketCap:           marketCap,
		EnterpriseValue:     targetEV,
		ImpliedRevenueYearN: revenueN,
		ImpliedFCFYearN:     fcfN,
		TerminalMargin:      tm,
		ProjectionYears:     years,
		IsReasonable:        reasonable,
		ReasonablenessNotes: notes,
		Converged:           converged,
		Iterations:          iterations,
	}
}
