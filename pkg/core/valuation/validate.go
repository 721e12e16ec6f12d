package valuation

import (
	"fmt"
	"math"
)

// InvalidValuationInputError reports an input that would make the DCF arithmetic meaningless
type InvalidValuationInputError struct {
	Field  string
	Reason string
}

func (e *InvalidValuationInputError) Error() string {
	return fmt.Sprintf("invalid valuation input %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &InvalidValuationInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the preconditions CalculateDCF relies on.
// CalculateDCF never calls this; it is for callers handling untrusted input.
func (in ProjectionInputs) Validate() error {
	if in.WACC <= in.TerminalGrowth {
		return invalid("wacc", "must exceed terminal growth (wacc=%.4f, g=%.4f)", in.WACC, in.TerminalGrowth)
	}
	if len(in.RevenueProjections) > 0 && len(in.OperatingMargins) == 0 {
		return invalid("operating_margins", "at least one margin is required")
	}
	if len(in.OperatingMargins) > len(in.RevenueProjections) && len(in.RevenueProjections) > 0 {
		return invalid("operating_margins", "%d margins for %d revenue years", len(in.OperatingMargins), len(in.RevenueProjections))
	}
	for i, r := range in.RevenueProjections {
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return invalid("revenue_projections", "year %d revenue %v is not a positive number", i+1, r)
		}
	}
	for _, v := range []float64{in.TaxRate, in.DepreciationPct, in.CapexPct, in.NWCPctDelta, in.CurrentRevenue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("inputs", "non-finite assumption")
		}
	}
	return nil
}

// ValidateShares rejects a share count that would divide by zero
func ValidateShares(sharesOutstanding float64) error {
	if sharesOutstanding <= 0 || math.IsNaN(sharesOutstanding) {
		return invalid("shares_outstanding", "must be positive, got %v", sharesOutstanding)
	}
	return nil
}

// Validate checks the preconditions of the reverse DCF solver
func (in ReverseDCFInputs) Validate() error {
	if in.CurrentPrice <= 0 {
		return invalid("current_price", "must be positive, got %v", in.CurrentPrice)
	}
	if err := ValidateShares(in.SharesOutstanding); err != nil {
		return err
	}
	if in.CurrentRevenue <= 0 {
		return invalid("current_revenue", "must be positive, got %v", in.CurrentRevenue)
	}
	if in.WACC <= in.TerminalGrowth {
		return invalid("wacc", "must exceed terminal growth (wacc=%.4f, g=%.4f)", in.WACC, in.TerminalGrowth)
	}
	return nil
}

// ValidateGrid checks that every WACC in the sweep exceeds every terminal growth rate
func ValidateGrid(waccRange, growthRange []float64) error {
	for _, w := range waccRange {
		for _, g := range growthRange {
			if w <= g {
				return invalid("wacc_range", "wacc %.4f does not exceed terminal growth %.4f", w, g)
			}
		}
	}
	return nil
}
