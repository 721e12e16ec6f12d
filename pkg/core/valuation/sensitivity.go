package valuation

import (
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// SensitivityPoint is one cell of the WACC × terminal growth grid
type SensitivityPoint struct {
	WACC           float64 `json:"wacc"`
	TerminalGrowth float64 `json:"terminal_growth"`
	PerShareValue  float64 `json:"per_share_value"`
}

// DefaultWACCRange is base ± 2% in 1% steps
func DefaultWACCRange(base float64) []float64 {
	return floats.Span(make([]float64, 5), base-0.02, base+0.02)
}

// DefaultGrowthRange is base ± 1% in 0.5% steps
func DefaultGrowthRange(base float64) []float64 {
	return floats.Span(make([]float64, 5), base-0.01, base+0.01)
}

// SensitivityAnalysis re-runs CalculateDCF for every (WACC, terminal growth) pair.
// Results are row-major: WACC outer, growth inner. nil ranges fall back to the defaults
// around the input's own WACC and growth.
func SensitivityAnalysis(in ProjectionInputs, netDebt, sharesOutstanding float64, waccRange, growthRange []float64) []SensitivityPoint {
	if waccRange == nil {
		waccRange = DefaultWACCRange(in.WACC)
	}
	if growthRange == nil {
		growthRange = DefaultGrowthRange(in.TerminalGrowth)
	}

	points := make([]SensitivityPoint, len(waccRange)*len(growthRange))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, w := range waccRange {
		for j, tg := range growthRange {
			idx := i*len(growthRange) + j
			g.Go(func() error {
				scenario := in
				scenario.WACC = w
				scenario.TerminalGrowth = tg
				res := CalculateDCF(scenario, netDebt, sharesOutstanding)
				points[idx] = SensitivityPoint{WACC: w, TerminalGrowth: tg, PerShareValue: res.IntrinsicValuePerShare}
				return nil
			})
		}
	}
	g.Wait()

	return points
}

// FiniteGrid reports whether every point has a real per-share value.
// A pair with wacc == g yields Inf or NaN.
func FiniteGrid(points []SensitivityPoint) bool {
	for _, p := range points {
		if math.IsNaN(p.PerShareValue) || math.IsInf(p.PerShareValue, 0) {
			return false
		}
	}
	return true
}

// SensitivityMatrix is the grid reshaped for tabular export
type SensitivityMatrix struct {
	WACCs   []float64   `json:"waccs"`
	Growths []float64   `json:"growths"`
	Values  [][]float64 `json:"values"` // Values[wacc][growth]
}

// SensitivityGrid reshapes points into a matrix keyed by the distinct WACC and growth values (ascending)
func SensitivityGrid(points []SensitivityPoint) SensitivityMatrix {
	waccIdx := map[float64]int{}
	growthIdx := map[float64]int{}
	var m SensitivityMatrix
	for _, p := range points {
		if _, ok := waccIdx[p.WACC]; !ok {
			waccIdx[p.WACC] = 0
			m.WACCs = append(m.WACCs, p.WACC)
		}
		if _, ok := growthIdx[p.TerminalGrowth]; !ok {
			growthIdx[p.TerminalGrowth] = 0
			m.Growths = append(m.Growths, p.TerminalGrowth)
		}
	}
	sort.Float64s(m.WACCs)
	sort.Float64s(m.Growths)
	for i, w := range m.WACCs {
		waccIdx[w] = i
	}
	for j, g := range m.Growths {
		growthIdx[g] = j
	}

	m.Values = make([][]float64, len(m.WACCs))
	for i := range m.Values {
		m.Values[i] = make([]float64, len(m.Growths))
	}
	for _, p := range points {
		m.Values[waccIdx[p.WACC]][growthIdx[p.TerminalGrowth]] = p.PerShareValue
	}
	return m
}
