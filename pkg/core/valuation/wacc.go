package valuation

// WACCInputs parameters for calculating Cost of Capital
type WACCInputs struct {
	RiskFreeRate      float64 `json:"risk_free_rate"`
	EquityRiskPremium float64 `json:"equity_risk_premium"`
	Beta              float64 `json:"beta"`
	CostOfDebt        float64 `json:"cost_of_debt"` // Pre-tax
	TaxRate           float64 `json:"tax_rate"`
	DebtToCapital     float64 `json:"debt_to_capital"` // D / (D + E)

	// Reserved. Not applied by CalculateWACC.
	SizePremium     float64 `json:"size_premium,omitempty"`
	IndustryPremium float64 `json:"industry_premium,omitempty"`
}

// WACCBreakdown holds the calculated rates
type WACCBreakdown struct {
	CostOfEquity       float64 `json:"cost_of_equity"`
	AfterTaxCostOfDebt float64 `json:"after_tax_cost_of_debt"`
	WeightEquity       float64 `json:"weight_equity"`
	WeightDebt         float64 `json:"weight_debt"`
	WACC               float64 `json:"wacc"`
}

// CostOfEquity is CAPM: Ke = Rf + Beta * ERP
func CostOfEquity(in WACCInputs) float64 {
	return in.RiskFreeRate + in.Beta*in.EquityRiskPremium
}

// AfterTaxCostOfDebt is Kd * (1 - t)
func AfterTaxCostOfDebt(in WACCInputs) float64 {
	return in.CostOfDebt * (1 - in.TaxRate)
}

// CalculateWACC computes the Weighted Average Cost of Capital.
//
// FORMULA: WACC = (1 - D/C) × Ke + D/C × Kd × (1 - T)
//
// Inputs are not range checked: a negative beta or D/C above 1 flows
// straight through to the result.
func CalculateWACC(in WACCInputs) float64 {
	return CalculateWACCBreakdown(in).WACC
}

// CalculateWACCBreakdown returns WACC together with its components
func CalculateWACCBreakdown(in WACCInputs) WACCBreakdown {
	ke := CostOfEquity(in)
	kd := AfterTaxCostOfDebt(in)
	wd := in.DebtToCapital
	we := 1 - wd

	return WACCBreakdown{
		CostOfEquity:       ke,
		AfterTaxCostOfDebt: kd,
		WeightEquity:       we,
		WeightDebt:         wd,
		WACC:               we*ke + wd*kd,
	}
}

// RelevelBeta re-levers an asset beta at a target D/E (Hamada).
// BetaL = BetaU * (1 + (1-t)*(D/E))
func RelevelBeta(unleveredBeta, taxRate, debtToEquity float64) float64 {
	return unleveredBeta * (1 + (1-taxRate)*debtToEquity)
}

// DebtToCapitalFromDE converts a D/E ratio into D/(D+E).
// D/E = x -> D = xE, V = E(1+x), Wd = x / (1+x)
func DebtToCapitalFromDE(debtToEquity float64) float64 {
	return debtToEquity / (1 + debtToEquity)
}
