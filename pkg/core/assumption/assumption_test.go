package assumption

import (
	"math"
	"strings"
	"testing"

	"equity_valuation/pkg/core/valuation"
)

func sampleHistory() []HistoricalYear {
	// Deliberately out of order
	return []HistoricalYear{
		{Year: 2023, Revenue: 100, OperatingIncome: 20, DepreciationAmortization: 5, Capex: -7.5, IncomeTaxExpense: 4.2, PretaxIncome: 20, InterestExpense: 1.5, TotalDebt: 30, Cash: 10, NetWorkingCapital: 10},
		{Year: 2021, Revenue: 80, OperatingIncome: 16, DepreciationAmortization: 4, Capex: -6, IncomeTaxExpense: 3.15, PretaxIncome: 15, TotalDebt: 25, Cash: 8, NetWorkingCapital: 8},
		{Year: 2022, Revenue: 90, OperatingIncome: 18, DepreciationAmortization: 4.5, Capex: -6.75, IncomeTaxExpense: 3.57, PretaxIncome: 17, TotalDebt: 28, Cash: 9, NetWorkingCapital: 9},
	}
}

func sampleMarket() MarketData {
	return MarketData{Price: 50, SharesOutstanding: 2, Beta: 1.1, RiskFreeRate: 0.04, EquityRiskPremium: 0.05}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuild(t *testing.T) {
	as, err := Build("ACME", sampleHistory(), sampleMarket(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if as.ID == "" {
		t.Error("ID should be assigned")
	}
	p := as.Projection
	if p.CurrentRevenue != 100 {
		t.Errorf("expected current revenue from latest year (100), got %f", p.CurrentRevenue)
	}

	wantCAGR := math.Sqrt(100.0/80.0) - 1
	if !approx(as.HistoricalCAGR, wantCAGR) {
		t.Errorf("expected CAGR %f, got %f", wantCAGR, as.HistoricalCAGR)
	}
	if len(as.GrowthPath) != 5 || !approx(as.GrowthPath[0], wantCAGR) || !approx(as.GrowthPath[4], 0.025) {
		t.Errorf("growth path should fade from %f to 0.025, got %v", wantCAGR, as.GrowthPath)
	}
	if len(p.RevenueProjections) != 5 || !approx(p.RevenueProjections[0], 100*(1+wantCAGR)) {
		t.Errorf("unexpected revenue projections %v", p.RevenueProjections)
	}

	for i, m := range p.OperatingMargins {
		if !approx(m, 0.2) {
			t.Errorf("margin %d expected 0.2, got %f", i, m)
		}
	}
	if !approx(p.TaxRate, 0.21) {
		t.Errorf("expected tax 0.21, got %f", p.TaxRate)
	}
	if !approx(p.DepreciationPct, 0.05) {
		t.Errorf("expected D&A 5%%, got %f", p.DepreciationPct)
	}
	if !approx(p.CapexPct, 0.075) {
		t.Errorf("expected capex 7.5%%, got %f", p.CapexPct)
	}
	if !approx(p.NWCPctDelta, 0.1) {
		t.Errorf("expected NWC intensity 0.1, got %f", p.NWCPctDelta)
	}

	if as.NetDebt != 20 {
		t.Errorf("expected net debt 20, got %f", as.NetDebt)
	}
	if !approx(as.WACCInputs.CostOfDebt, 0.05) {
		t.Errorf("expected cost of debt 0.05, got %f", as.WACCInputs.CostOfDebt)
	}
	if !approx(as.WACCInputs.DebtToCapital, 30.0/130.0) {
		t.Errorf("expected D/C 30/130, got %f", as.WACCInputs.DebtToCapital)
	}
	if p.WACC != valuation.CalculateWACC(as.WACCInputs) {
		t.Errorf("projection WACC %f should come from the WACC inputs", p.WACC)
	}

	res := valuation.CalculateDCF(p, as.NetDebt, as.SharesOutstanding)
	if !res.IsFinite() || res.IntrinsicValuePerShare <= 0 {
		t.Errorf("expected a positive finite valuation, got %+v", res)
	}
}

func TestBuild_ClampsGrowth(t *testing.T) {
	history := []HistoricalYear{
		{Year: 2022, Revenue: 50, OperatingIncome: 10},
		{Year: 2023, Revenue: 100, OperatingIncome: 20},
	}
	as, err := Build("FAST", history, sampleMarket(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if as.GrowthPath[0] != 0.30 {
		t.Errorf("growth should be clamped to 0.30, got %f", as.GrowthPath[0])
	}
	if !strings.Contains(strings.Join(as.Notes, " "), "clamped") {
		t.Errorf("expected a clamp note, got %v", as.Notes)
	}
	// No tax data: default rate
	if as.Projection.TaxRate != 0.21 {
		t.Errorf("expected default tax rate, got %f", as.Projection.TaxRate)
	}
	// No debt: cost of debt falls back to Rf + spread, D/C zero
	if !approx(as.WACCInputs.CostOfDebt, 0.06) || as.WACCInputs.DebtToCapital != 0 {
		t.Errorf("unexpected debt inputs %+v", as.WACCInputs)
	}
}

func TestBuild_SingleYear(t *testing.T) {
	as, err := Build("ONE", []HistoricalYear{{Year: 2023, Revenue: 100, OperatingIncome: 10}}, sampleMarket(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, g := range as.GrowthPath {
		if g != 0.025 {
			t.Errorf("single-year history should project at terminal growth, got %v", as.GrowthPath)
			break
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build("NONE", nil, sampleMarket(), DefaultBuildOptions()); err == nil {
		t.Error("expected error for empty history")
	}

	m := sampleMarket()
	m.SharesOutstanding = 0
	if _, err := Build("ACME", sampleHistory(), m, DefaultBuildOptions()); err == nil {
		t.Error("expected error for zero shares")
	}

	opts := DefaultBuildOptions()
	opts.TerminalGrowth = 0.2
	if _, err := Build("ACME", sampleHistory(), sampleMarket(), opts); err == nil {
		t.Error("expected error when WACC does not exceed terminal growth")
	}
}

func TestAssumptionSet_ReverseInputs(t *testing.T) {
	as, err := Build("ACME", sampleHistory(), sampleMarket(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := as.ReverseInputs()
	if in.CurrentPrice != 50 || in.SharesOutstanding != 2 || in.NetDebt != 20 {
		t.Errorf("market side not carried over: %+v", in)
	}
	if in.TerminalMargin == nil || !approx(*in.TerminalMargin, 0.2) {
		t.Errorf("terminal margin should be the last projected margin, got %v", in.TerminalMargin)
	}
	if in.WACC != as.Projection.WACC || in.ProjectionYears != 5 {
		t.Errorf("model settings not carried over: %+v", in)
	}

	res := valuation.CalculateImpliedGrowth(in)
	if res.Iterations == 0 {
		t.Error("solver should have run")
	}
}

func TestParseOverrides_Lenient(t *testing.T) {
	o, err := ParseOverrides("{\n  # bump risk\n  beta: 1.5\n  terminal_growth: 0.02\n}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Beta == nil || *o.Beta != 1.5 {
		t.Errorf("expected beta 1.5, got %v", o.Beta)
	}
	if o.TerminalGrowth == nil || *o.TerminalGrowth != 0.02 {
		t.Errorf("expected terminal growth 0.02, got %v", o.TerminalGrowth)
	}
	if o.WACC != nil {
		t.Error("unset fields should stay nil")
	}
}

func TestParseOverrides_Fenced(t *testing.T) {
	o, err := ParseOverrides("```json\n{\"wacc\": 0.085, \"beta\": 0.9}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.WACC == nil || *o.WACC != 0.085 {
		t.Errorf("expected wacc 0.085 exactly, got %v", o.WACC)
	}
	if o.Beta == nil || *o.Beta != 0.9 {
		t.Errorf("expected beta 0.9 exactly, got %v", o.Beta)
	}
}

func TestApplyOverrides(t *testing.T) {
	as, err := Build("ACME", sampleHistory(), sampleMarket(), DefaultBuildOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := as.Projection.WACC

	beta := 1.5
	growth := 0.05
	as.ApplyOverrides(Overrides{Beta: &beta, RevenueGrowth: &growth})

	if as.Projection.WACC <= before {
		t.Errorf("higher beta should raise WACC: %f -> %f", before, as.Projection.WACC)
	}
	if !approx(as.Projection.RevenueProjections[4], 100*math.Pow(1.05, 5)) {
		t.Errorf("flat 5%% growth expected, got %v", as.Projection.RevenueProjections)
	}

	wacc := 0.12
	tm := 0.25
	as.ApplyOverrides(Overrides{WACC: &wacc, TerminalMargin: &tm})
	if as.Projection.WACC != 0.12 {
		t.Errorf("direct WACC override should win, got %f", as.Projection.WACC)
	}
	last := as.Projection.OperatingMargins[len(as.Projection.OperatingMargins)-1]
	if !approx(last, 0.25) {
		t.Errorf("margins should end at the terminal override, got %f", last)
	}
}
