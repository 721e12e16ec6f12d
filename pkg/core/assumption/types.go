// Package assumption derives DCF and WACC inputs from historical financial statements.
// The output AssumptionSet is the hand-off between data collection and pkg/core/valuation.
package assumption

import (
	"encoding/json"
	"time"

	"equity_valuation/pkg/core/valuation"
)

// =============================================================================
// INPUTS
// =============================================================================

// HistoricalYear is one fiscal year of statement data (same currency unit throughout)
type HistoricalYear struct {
	Year                     int     `json:"year"`
	Revenue                  float64 `json:"revenue"`
	OperatingIncome          float64 `json:"operating_income"`
	DepreciationAmortization float64 `json:"depreciation_amortization"`
	Capex                    float64 `json:"capex"` // Sign ignored
	IncomeTaxExpense         float64 `json:"income_tax_expense"`
	PretaxIncome             float64 `json:"pretax_income"`
	InterestExpense          float64 `json:"interest_expense"`
	TotalDebt                float64 `json:"total_debt"`
	Cash                     float64 `json:"cash"`
	NetWorkingCapital        float64 `json:"net_working_capital"`
}

// MarketData is the market side of the valuation
type MarketData struct {
	Price             float64 `json:"price"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	Beta              float64 `json:"beta"`
	RiskFreeRate      float64 `json:"risk_free_rate"`
	EquityRiskPremium float64 `json:"equity_risk_premium"`
}

// BuildOptions control how history is turned into forward assumptions
type BuildOptions struct {
	ProjectionYears int     `json:"projection_years" yaml:"projection_years"`
	TerminalGrowth  float64 `json:"terminal_growth" yaml:"terminal_growth"`
	DefaultTaxRate  float64 `json:"default_tax_rate" yaml:"default_tax_rate"`
	MinGrowth       float64 `json:"min_growth" yaml:"min_growth"`
	MaxGrowth       float64 `json:"max_growth" yaml:"max_growth"`
	DebtSpread      float64 `json:"debt_spread" yaml:"debt_spread"` // Over Rf when interest/debt is unusable
}

// DefaultBuildOptions returns the house defaults
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		ProjectionYears: valuation.DefaultProjectionYears,
		TerminalGrowth:  0.025,
		DefaultTaxRate:  0.21,
		MinGrowth:       -0.10,
		MaxGrowth:       0.30,
		DebtSpread:      0.02,
	}
}

// =============================================================================
// ASSUMPTION SET
// =============================================================================

// AssumptionSet holds the derived inputs for one company
type AssumptionSet struct {
	ID     string `json:"id"`
	Ticker string `json:"ticker"`

	Projection valuation.ProjectionInputs `json:"projection"`
	WACCInputs valuation.WACCInputs       `json:"wacc_inputs"`
	GrowthPath []float64                  `json:"growth_path"` // Revenue growth per projection year

	NetDebt           float64 `json:"net_debt"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	CurrentPrice      float64 `json:"current_price"`
	CurrentMargin     float64 `json:"current_margin"`
	HistoricalCAGR    float64 `json:"historical_cagr"`

	Notes     []string  `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReverseInputs builds reverse DCF inputs sharing this set's model assumptions
func (as *AssumptionSet) ReverseInputs() valuation.ReverseDCFInputs {
	years := len(as.Projection.RevenueProjections)
	if years == 0 {
		years = valuation.DefaultProjectionYears
	}
	in := valuation.ReverseDCFInputs{
		CurrentPrice:      as.CurrentPrice,
		SharesOutstanding: as.SharesOutstanding,
		NetDebt:           as.NetDebt,
		CurrentRevenue:    as.Projection.CurrentRevenue,
		CurrentMargin:     as.CurrentMargin,
		TaxRate:           as.Projection.TaxRate,
		DepreciationPct:   as.Projection.DepreciationPct,
		CapexPct:          as.Projection.CapexPct,
		NWCPctDelta:       as.Projection.NWCPctDelta,
		WACC:              as.Projection.WACC,
		TerminalGrowth:    as.Projection.TerminalGrowth,
		ProjectionYears:   years,
	}
	if n := len(as.Projection.OperatingMargins); n > 0 {
		tm := as.Projection.OperatingMargins[n-1]
		in.TerminalMargin = &tm
	}
	return in
}

// ToJSON serializes the assumption set
func (as *AssumptionSet) ToJSON() ([]byte, error) {
	return json.Marshal(as)
}

// FromJSON deserializes an assumption set
func FromJSON(data []byte) (*AssumptionSet, error) {
	var as AssumptionSet
	if err := json.Unmarshal(data, &as); err != nil {
		return nil, err
	}
	return &as, nil
}
