package assumption

import (
	"fmt"

	"equity_valuation/pkg/core/utils"
	"equity_valuation/pkg/core/valuation"
)

// Overrides replaces individual derived assumptions. nil fields are left alone.
type Overrides struct {
	RevenueGrowth     *float64 `json:"revenue_growth,omitempty"` // Flat across the horizon
	OperatingMargin   *float64 `json:"operating_margin,omitempty"`
	TerminalMargin    *float64 `json:"terminal_margin,omitempty"`
	TaxRate           *float64 `json:"tax_rate,omitempty"`
	DepreciationPct   *float64 `json:"depreciation_pct,omitempty"`
	CapexPct          *float64 `json:"capex_pct,omitempty"`
	NWCPctDelta       *float64 `json:"nwc_pct_delta,omitempty"`
	TerminalGrowth    *float64 `json:"terminal_growth,omitempty"`
	Beta              *float64 `json:"beta,omitempty"`
	RiskFreeRate      *float64 `json:"risk_free_rate,omitempty"`
	EquityRiskPremium *float64 `json:"equity_risk_premium,omitempty"`
	CostOfDebt        *float64 `json:"cost_of_debt,omitempty"`
	DebtToCapital     *float64 `json:"debt_to_capital,omitempty"`
	WACC              *float64 `json:"wacc,omitempty"` // Wins over the CAPM components
}

// ParseOverrides decodes an override payload. Analyst notes and agent output are often
// not strict JSON, so repaired JSON and Hjson are accepted too.
func ParseOverrides(raw string) (Overrides, error) {
	var o Overrides
	if _, err := utils.SmartParse(raw, &o); err != nil {
		return Overrides{}, fmt.Errorf("failed to parse assumption overrides: %w", err)
	}
	return o, nil
}

// ApplyOverrides rewrites the set in place and recomputes WACC unless it was overridden directly
func (as *AssumptionSet) ApplyOverrides(o Overrides) {
	p := &as.Projection
	w := &as.WACCInputs

	if o.RevenueGrowth != nil {
		for i := range as.GrowthPath {
			as.GrowthPath[i] = *o.RevenueGrowth
		}
		p.RevenueProjections = compound(p.CurrentRevenue, as.GrowthPath)
		as.Notes = append(as.Notes, fmt.Sprintf("Revenue growth overridden to %.1f%%", *o.RevenueGrowth*100))
	}
	if o.OperatingMargin != nil {
		for i := range p.OperatingMargins {
			p.OperatingMargins[i] = *o.OperatingMargin
		}
	}
	if o.TerminalMargin != nil && len(p.OperatingMargins) > 0 {
		n := len(p.OperatingMargins)
		start := p.OperatingMargins[0]
		if o.OperatingMargin == nil {
			start = as.CurrentMargin
		}
		for i := range p.OperatingMargins {
			p.OperatingMargins[i] = valuation.InterpolatedMargin(start, *o.TerminalMargin, i+1, n)
		}
	}
	if o.TaxRate != nil {
		p.TaxRate = *o.TaxRate
		w.TaxRate = *o.TaxRate
	}
	setIf(&p.DepreciationPct, o.DepreciationPct)
	setIf(&p.CapexPct, o.CapexPct)
	setIf(&p.NWCPctDelta, o.NWCPctDelta)
	setIf(&p.TerminalGrowth, o.TerminalGrowth)
	setIf(&w.Beta, o.Beta)
	setIf(&w.RiskFreeRate, o.RiskFreeRate)
	setIf(&w.EquityRiskPremium, o.EquityRiskPremium)
	setIf(&w.CostOfDebt, o.CostOfDebt)
	setIf(&w.DebtToCapital, o.DebtToCapital)

	if o.WACC != nil {
		p.WACC = *o.WACC
		as.Notes = append(as.Notes, fmt.Sprintf("WACC overridden to %.2f%%", *o.WACC*100))
	} else {
		p.WACC = valuation.CalculateWACC(*w)
	}
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
