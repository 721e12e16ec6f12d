// Package export renders valuation results as JSON, CSV and Markdown/HTML reports.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"equity_valuation/pkg/core/utils"
	"equity_valuation/pkg/core/valuation"
)

// Report bundles whatever results exist for one company; nil sections are skipped
type Report struct {
	Ticker      string                       `json:"ticker"`
	WACC        *valuation.WACCBreakdown     `json:"wacc,omitempty"`
	DCF         *valuation.DCFResult         `json:"dcf,omitempty"`
	Multiples   *valuation.ImpliedMultiples  `json:"multiples,omitempty"`
	Reverse     *valuation.ReverseDCFResult  `json:"reverse_dcf,omitempty"`
	Sensitivity []valuation.SensitivityPoint `json:"sensitivity,omitempty"`
	GeneratedAt time.Time                    `json:"generated_at"`
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteSensitivityCSV writes one row per grid point
func WriteSensitivityCSV(w io.Writer, points []valuation.SensitivityPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"wacc", "terminal_growth", "per_share_value"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{ff(p.WACC), ff(p.TerminalGrowth), ff(p.PerShareValue)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSensitivityMatrixCSV writes WACC rows against terminal growth columns
func WriteSensitivityMatrixCSV(w io.Writer, m valuation.SensitivityMatrix) error {
	cw := csv.NewWriter(w)
	header := []string{"wacc\\terminal_growth"}
	for _, g := range m.Growths {
		header = append(header, ff(g))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, wacc := range m.WACCs {
		row := []string{ff(wacc)}
		for _, v := range m.Values[i] {
			row = append(row, ff(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func pct(v float64) string   { return fmt.Sprintf("%.2f%%", v*100) }
func money(v float64) string { return fmt.Sprintf("%.2f", v) }

// MarkdownReport renders the report as GitHub-flavoured Markdown
func MarkdownReport(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Valuation: %s\n\n", r.Ticker)
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "_Generated %s_\n\n", r.GeneratedAt.Format(time.RFC3339))
	}

	if r.WACC != nil {
		b.WriteString("## Cost of Capital\n\n| Component | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Cost of equity | %s |\n", pct(r.WACC.CostOfEquity))
		fmt.Fprintf(&b, "| After-tax cost of debt | %s |\n", pct(r.WACC.AfterTaxCostOfDebt))
		fmt.Fprintf(&b, "| Equity weight | %s |\n", pct(r.WACC.WeightEquity))
		fmt.Fprintf(&b, "| Debt weight | %s |\n", pct(r.WACC.WeightDebt))
		fmt.Fprintf(&b, "| **WACC** | **%s** |\n\n", pct(r.WACC.WACC))
	}

	if r.DCF != nil {
		d := r.DCF
		b.WriteString("## Discounted Cash Flow\n\n| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Intrinsic value per share | %s |\n", money(d.IntrinsicValuePerShare))
		fmt.Fprintf(&b, "| Enterprise value | %s |\n", money(d.EnterpriseValue))
		fmt.Fprintf(&b, "| Equity value | %s |\n", money(d.EquityValue))
		fmt.Fprintf(&b, "| PV of explicit FCF | %s |\n", money(d.PVFCF))
		fmt.Fprintf(&b, "| Terminal value | %s |\n", money(d.TerminalValue))
		fmt.Fprintf(&b, "| PV of terminal value | %s (%s of EV) |\n", money(d.PVTerminal), pct(d.TerminalShare()))
		fmt.Fprintf(&b, "| WACC / terminal growth | %s / %s |\n\n", pct(d.WACC), pct(d.TerminalGrowth))

		b.WriteString("| Year | FCF | Discount factor | PV |\n|---|---|---|---|\n")
		for i, fcf := range d.FCFProjections {
			df := d.DiscountFactors[i]
			fmt.Fprintf(&b, "| %d | %s | %.4f | %s |\n", i+1, money(fcf), df, money(fcf*df))
		}
		b.WriteString("\n")
	}

	if m := r.Multiples; m != nil {
		b.WriteString("## Implied Multiples\n\n| Multiple | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| EV / revenue | %.2fx |\n", m.EVToRevenue)
		fmt.Fprintf(&b, "| EV / forward revenue | %.2fx |\n", m.EVToForwardRevenue)
		fmt.Fprintf(&b, "| EV / forward EBIT | %.2fx |\n\n", m.EVToForwardEBIT)
	}

	if r.Reverse != nil {
		rv := r.Reverse
		b.WriteString("## Reverse DCF\n\n| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Implied revenue CAGR | %s |\n", pct(rv.ImpliedRevenueCAGR))
		fmt.Fprintf(&b, "| Market cap | %s |\n", money(rv.MarketCap))
		fmt.Fprintf(&b, "| Enterprise value | %s |\n", money(rv.EnterpriseValue))
		fmt.Fprintf(&b, "| Year %d revenue | %s |\n", rv.ProjectionYears, money(rv.ImpliedRevenueYearN))
		fmt.Fprintf(&b, "| Year %d FCF | %s |\n", rv.ProjectionYears, money(rv.ImpliedFCFYearN))
		fmt.Fprintf(&b, "| Terminal margin | %s |\n", pct(rv.TerminalMargin))
		fmt.Fprintf(&b, "| Reasonable | %t |\n\n", rv.IsReasonable)
		for _, n := range rv.ReasonablenessNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
		if !rv.Converged {
			fmt.Fprintf(&b, "- Solver stopped after %d iterations without meeting tolerance\n", rv.Iterations)
		}
		b.WriteString("\n")
	}

	if len(r.Sensitivity) > 0 {
		m := valuation.SensitivityGrid(r.Sensitivity)
		b.WriteString("## Sensitivity (value per share)\n\n| WACC \\ g |")
		for _, g := range m.Growths {
			fmt.Fprintf(&b, " %s |", pct(g))
		}
		b.WriteString("\n|---|")
		for range m.Growths {
			b.WriteString("---|")
		}
		b.WriteString("\n")
		for i, w := range m.WACCs {
			fmt.Fprintf(&b, "| %s |", pct(w))
			for _, v := range m.Values[i] {
				fmt.Fprintf(&b, " %s |", money(v))
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// HTMLReport renders the Markdown report to HTML
func HTMLReport(r Report) (string, error) {
	html, err := utils.RenderHTML(MarkdownReport(r))
	if err != nil {
		return "", fmt.Errorf("failed to render report for %s: %w", r.Ticker, err)
	}
	return html, nil
}
