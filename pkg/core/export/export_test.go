package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity_valuation/pkg/core/valuation"
)

func sampleReport() Report {
	in := valuation.ProjectionInputs{
		RevenueProjections: []float64{110, 121, 133, 146, 161},
		OperatingMargins:   []float64{0.30, 0.31, 0.32},
		TaxRate:            0.21,
		WACC:               0.10,
		TerminalGrowth:     0.025,
		CurrentRevenue:     100,
	}
	dcf := valuation.CalculateDCF(in, 50, 15)
	tm := 0.32
	rev := valuation.DefaultReverseDCFInputs()
	rev.CurrentPrice = 20
	rev.SharesOutstanding = 15
	rev.NetDebt = 50
	rev.CurrentRevenue = 100
	rev.CurrentMargin = 0.30
	rev.TerminalMargin = &tm
	reverse := valuation.CalculateImpliedGrowth(rev)

	return Report{
		Ticker:      "ACME",
		DCF:         &dcf,
		Reverse:     &reverse,
		Sensitivity: valuation.SensitivityAnalysis(in, 50, 15, nil, nil),
	}
}

func TestWriteSensitivityCSV(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, WriteSensitivityCSV(&buf, r.Sensitivity))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 26)
	assert.Equal(t, []string{"wacc", "terminal_growth", "per_share_value"}, rows[0])
	assert.Len(t, rows[1], 3)
}

func TestWriteSensitivityMatrixCSV(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, WriteSensitivityMatrixCSV(&buf, valuation.SensitivityGrid(r.Sensitivity)))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	for _, row := range rows {
		assert.Len(t, row, 6)
	}
}

func TestWriteJSON(t *testing.T) {
	r := sampleReport()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, r))
	assert.Contains(t, buf.String(), `"intrinsic_value_per_share"`)
	assert.Contains(t, buf.String(), `"implied_revenue_cagr"`)
	assert.NotContains(t, buf.String(), `"wacc": {`)
}

func TestMarkdownReport(t *testing.T) {
	md := MarkdownReport(sampleReport())
	assert.True(t, strings.HasPrefix(md, "# Valuation: ACME"))
	assert.Contains(t, md, "## Discounted Cash Flow")
	assert.Contains(t, md, "## Reverse DCF")
	assert.Contains(t, md, "## Sensitivity")
	assert.NotContains(t, md, "## Cost of Capital")
}

func TestHTMLReport_Tables(t *testing.T) {
	html, err := HTMLReport(sampleReport())
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	tables := doc.Find("table")
	require.Equal(t, 4, tables.Length(), "summary, FCF, reverse and sensitivity tables")

	fcfRows := tables.Eq(1).Find("tbody tr")
	assert.Equal(t, 5, fcfRows.Length())

	sens := tables.Eq(3)
	assert.Equal(t, 5, sens.Find("tbody tr").Length())
	assert.Equal(t, 6, sens.Find("thead th").Length())

	assert.Equal(t, "Valuation: ACME", doc.Find("h1").Text())
}
