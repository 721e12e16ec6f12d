package assumption

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"equity_valuation/pkg/core/valuation"
)

// Build derives projection and WACC inputs from historical statements and market data.
//
// Revenue growth starts at the historical CAGR (clamped) and fades linearly to the
// terminal growth rate by the final projection year. Margin, D&A%, capex% and the
// NWC intensity are historical averages held flat.
func Build(ticker string, history []HistoricalYear, market MarketData, opts BuildOptions) (*AssumptionSet, error) {
	if opts.ProjectionYears <= 0 {
		opts.ProjectionYears = valuation.DefaultProjectionYears
	}
	if market.SharesOutstanding <= 0 {
		return nil, fmt.Errorf("shares outstanding must be positive for %s", ticker)
	}

	years := make([]HistoricalYear, 0, len(history))
	for _, h := range history {
		if h.Revenue > 0 {
			years = append(years, h)
		}
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("no historical year with positive revenue for %s", ticker)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })
	latest := years[len(years)-1]

	as := &AssumptionSet{
		ID:                uuid.New().String(),
		Ticker:            ticker,
		SharesOutstanding: market.SharesOutstanding,
		CurrentPrice:      market.Price,
		CreatedAt:         time.Now(),
	}

	// 1. Revenue growth path
	cagr, ok := historicalCAGR(years)
	if !ok {
		cagr = opts.TerminalGrowth
		as.Notes = append(as.Notes, "Single year of history: growth starts at terminal rate")
	}
	as.HistoricalCAGR = cagr
	start := clamp(cagr, opts.MinGrowth, opts.MaxGrowth)
	if start != cagr {
		as.Notes = append(as.Notes, fmt.Sprintf("Historical CAGR %.1f%% clamped to %.1f%%", cagr*100, start*100))
	}
	as.GrowthPath = fadePath(start, opts.TerminalGrowth, opts.ProjectionYears)

	// 2. Ratios
	margin := stat.Mean(ratios(years, func(h HistoricalYear) float64 { return h.OperatingIncome }), nil)
	as.CurrentMargin = latest.OperatingIncome / latest.Revenue

	taxRate := effectiveTaxRate(years, opts.DefaultTaxRate)
	depPct := stat.Mean(ratios(years, func(h HistoricalYear) float64 { return math.Abs(h.DepreciationAmortization) }), nil)
	capexPct := stat.Mean(ratios(years, func(h HistoricalYear) float64 { return math.Abs(h.Capex) }), nil)
	nwcPct := nwcIntensity(years)

	margins := make([]float64, opts.ProjectionYears)
	for i := range margins {
		margins[i] = margin
	}

	as.Projection = valuation.ProjectionInputs{
		RevenueProjections: compound(latest.Revenue, as.GrowthPath),
		OperatingMargins:   margins,
		TaxRate:            taxRate,
		DepreciationPct:    depPct,
		CapexPct:           capexPct,
		NWCPctDelta:        nwcPct,
		TerminalGrowth:     opts.TerminalGrowth,
		CurrentRevenue:     latest.Revenue,
	}

	// 3. Capital structure
	as.NetDebt = latest.TotalDebt - latest.Cash
	costOfDebt := market.RiskFreeRate + opts.DebtSpread
	if latest.TotalDebt > 0 && latest.InterestExpense != 0 {
		costOfDebt = math.Abs(latest.InterestExpense) / latest.TotalDebt
	}
	debtToCapital := 0.0
	if capital := latest.TotalDebt + market.Price*market.SharesOutstanding; latest.TotalDebt > 0 && capital > 0 {
		debtToCapital = latest.TotalDebt / capital
	}

	as.WACCInputs = valuation.WACCInputs{
		RiskFreeRate:      market.RiskFreeRate,
		EquityRiskPremium: market.EquityRiskPremium,
		Beta:              market.Beta,
		CostOfDebt:        costOfDebt,
		TaxRate:           taxRate,
		DebtToCapital:     debtToCapital,
	}
	as.Projection.WACC = valuation.CalculateWACC(as.WACCInputs)

	if as.Projection.WACC <= as.Projection.TerminalGrowth {
		return nil, fmt.Errorf("derived WACC %.4f does not exceed terminal growth %.4f for %s", as.Projection.WACC, as.Projection.TerminalGrowth, ticker)
	}

	return as, nil
}

// historicalCAGR is (last/first)^(1/span) - 1 over the fiscal years covered
func historicalCAGR(years []HistoricalYear) (float64, bool) {
	first, last := years[0], years[len(years)-1]
	span := last.Year - first.Year
	if span <= 0 {
		span = len(years) - 1
	}
	if span <= 0 {
		return 0, false
	}
	return math.Pow(last.Revenue/first.Revenue, 1/float64(span)) - 1, true
}

// fadePath moves linearly from start (year 1) to end (year n)
func fadePath(start, end float64, n int) []float64 {
	path := make([]float64, n)
	for i := range path {
		if n == 1 {
			path[i] = start
			continue
		}
		path[i] = start + (end-start)*float64(i)/float64(n-1)
	}
	return path
}

func compound(base float64, growth []float64) []float64 {
	out := make([]float64, len(growth))
	r := base
	for i, g := range growth {
		r *= 1 + g
		out[i] = r
	}
	return out
}

// ratios returns f(h)/revenue for each year
func ratios(years []HistoricalYear, f func(HistoricalYear) float64) []float64 {
	out := make([]float64, len(years))
	for i, h := range years {
		out[i] = f(h) / h.Revenue
	}
	return out
}

// effectiveTaxRate averages tax/pretax over profitable years, clamped to [0, 0.5]
func effectiveTaxRate(years []HistoricalYear, fallback float64) float64 {
	var rates []float64
	for _, h := range years {
		if h.PretaxIncome > 0 && h.IncomeTaxExpense != 0 {
			rates = append(rates, math.Abs(h.IncomeTaxExpense)/h.PretaxIncome)
		}
	}
	if len(rates) == 0 {
		return fallback
	}
	return clamp(stat.Mean(rates, nil), 0, 0.5)
}

// nwcIntensity is the average ΔNWC / ΔRevenue between consecutive years
func nwcIntensity(years []HistoricalYear) float64 {
	var deltas []float64
	for i := 1; i < len(years); i++ {
		dRev := years[i].Revenue - years[i-1].Revenue
		if dRev == 0 {
			continue
		}
		deltas = append(deltas, (years[i].NetWorkingCapital-years[i-1].NetWorkingCapital)/dRev)
	}
	if len(deltas) == 0 {
		return 0
	}
	return stat.Mean(deltas, nil)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
