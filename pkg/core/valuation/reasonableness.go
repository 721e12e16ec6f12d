package valuation

import "fmt"

// Thresholds for flagging what a market price implies
const (
	VeryAggressiveGrowth = 0.30
	AggressiveGrowth     = 0.20
	VeryHighMargin       = 0.40
	HighMargin           = 0.30
)

// ReasonableNote is emitted when no threshold is crossed
const ReasonableNote = "Implied assumptions appear reasonable"

// AssessReasonableness classifies an implied CAGR and terminal margin.
// Only the growth checks affect the boolean; margin checks are informational.
func AssessReasonableness(cagr, terminalMargin float64) (bool, []string) {
	reasonable := true
	var notes []string

	switch {
	case cagr >= VeryAggressiveGrowth:
		reasonable = false
		notes = append(notes, fmt.Sprintf("Implied revenue CAGR of %.1f%% meets or exceeds 30%%: very aggressive", cagr*100))
	case cagr > AggressiveGrowth:
		notes = append(notes, fmt.Sprintf("Implied revenue CAGR of %.1f%% is above 20%%: aggressive", cagr*100))
	case cagr < 0:
		reasonable = false
		notes = append(notes, fmt.Sprintf("Implied revenue CAGR of %.1f%% implies decline priced in", cagr*100))
	}

	switch {
	case terminalMargin > VeryHighMargin:
		notes = append(notes, fmt.Sprintf("Terminal margin of %.1f%% is very high (above 40%%)", terminalMargin*100))
	case terminalMargin > HighMargin:
		notes = append(notes, fmt.Sprintf("Terminal margin of %.1f%% is high (above 30%%)", terminalMargin*100))
	}

	if len(notes) == 0 {
		notes = append(notes, ReasonableNote)
	}
	return reasonable, notes
}
