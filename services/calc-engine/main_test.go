package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity_valuation/pkg/core/valuation"
)

const dcfPayload = `{
	"ticker": "ACME",
	"inputs": {
		"revenue_projections": [110, 121, 133.1, 146.41, 161.051],
		"operating_margins": [0.2],
		"tax_rate": 0.21, "depreciation_pct": 0.03, "capex_pct": 0.04, "nwc_pct_delta": 0.1,
		"terminal_growth": 0.025, "wacc": 0.09, "current_revenue": 100
	},
	"net_debt": 20,
	"shares_outstanding": 10
}`

func TestRun_WACCFromHjson(t *testing.T) {
	var out bytes.Buffer
	payload := `{
		# CAPM inputs
		risk_free_rate: 0.04
		equity_risk_premium: 0.05
		beta: 1.2
		cost_of_debt: 0.06
		tax_rate: 0.25
		debt_to_capital: 0.3
	}`
	require.NoError(t, run("wacc", payload, "json", &out))

	var res valuation.WACCBreakdown
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 0.0835, res.WACC, 1e-12)
}

func TestRun_DCFMarkdown(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("dcf", dcfPayload, "md", &out))
	assert.Contains(t, out.String(), "# Valuation: ACME")
	assert.Contains(t, out.String(), "Intrinsic value per share")
}

func TestRun_SensitivityCSVMatrix(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("sensitivity", dcfPayload, "csv", &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6, "header plus one row per WACC")
	assert.Len(t, strings.Split(lines[0], ","), 6)
}

func TestRun_ReverseUsesDefaults(t *testing.T) {
	var out bytes.Buffer
	payload := `{"current_price": 100, "shares_outstanding": 1000000000, "current_revenue": 50000000000, "current_margin": 0.2}`
	require.NoError(t, run("reverse", payload, "json", &out))

	var res valuation.ReverseDCFResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, valuation.DefaultProjectionYears, res.ProjectionYears)
	assert.Positive(t, res.Iterations)
}

const assumptionsPayload = `{
	ticker: thin
	history: [
		{year: 2022, revenue: 90, operating_income: 18}
		{year: 2023, revenue: 100, operating_income: 20}
	]
	market: {price: 50, shares_outstanding: 2, beta: 1.1, risk_free_rate: 0.04, equity_risk_premium: 0.05}
	overrides: %s
}`

func TestRun_AssumptionsValidatesOverrides(t *testing.T) {
	var out bytes.Buffer
	err := run("assumptions", fmt.Sprintf(assumptionsPayload, `{wacc: 0.02}`), "md", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wacc")
	assert.Empty(t, out.String())

	out.Reset()
	require.NoError(t, run("assumptions", fmt.Sprintf(assumptionsPayload, `{wacc: 0.05}`), "json", &out))
	assert.Contains(t, out.String(), "Sensitivity grid skipped")
}

func TestRun_SensitivityRejectsCollidingRanges(t *testing.T) {
	var out bytes.Buffer
	payload := strings.Replace(dcfPayload, `"net_debt": 20,`, `"net_debt": 20, "wacc_range": [0.03], "growth_range": [0.03],`, 1)
	err := run("sensitivity", payload, "csv", &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wacc_range")
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run("npv", dcfPayload, "json", &out))
	assert.Error(t, run("dcf", dcfPayload, "xlsx", &out))
	assert.Error(t, run("dcf", dcfPayload, "csv", &out), "DCF output has no grid")
	assert.Error(t, run("reverse", `{"current_price": 0}`, "json", &out))
}

func TestReadPayload(t *testing.T) {
	got, err := readPayload(`{"a":1}`, "")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)

	_, err = readPayload("", "")
	assert.Error(t, err)
}
