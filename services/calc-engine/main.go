package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	api "equity_valuation/pkg/api/valuation"
	"equity_valuation/pkg/core/assumption"
	"equity_valuation/pkg/core/export"
	"equity_valuation/pkg/core/logger"
	"equity_valuation/pkg/core/utils"
	"equity_valuation/pkg/core/valuation"
)

func main() {
	mode := flag.String("mode", "dcf", "Mode: wacc, dcf, reverse, sensitivity or assumptions")
	dataStr := flag.String("data", "", "JSON (or Hjson) payload")
	file := flag.String("file", "", "Read the payload from a file ('-' for stdin)")
	format := flag.String("format", "json", "Output: json, csv, md or html")
	flag.Parse()

	log := logger.NewWithWriter(logger.Config{Level: "warn", Pretty: true}, os.Stderr)

	payload, err := readPayload(*dataStr, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("No input")
	}

	if err := run(*mode, payload, *format, os.Stdout); err != nil {
		log.Fatal().Err(err).Str("mode", *mode).Msg("Calculation failed")
	}
}

func readPayload(data, file string) (string, error) {
	switch {
	case data != "":
		return data, nil
	case file == "-":
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	case file != "":
		b, err := os.ReadFile(file)
		return string(b), err
	}
	return "", fmt.Errorf("provide -data or -file")
}

// run executes one calculation and writes it in the requested format
func run(mode, payload, format string, w io.Writer) error {
	var (
		result interface{}
		report = export.Report{GeneratedAt: time.Now().UTC()}
	)

	switch mode {
	case "wacc":
		var req api.WACCRequest
		if _, err := utils.SmartParse(payload, &req); err != nil {
			return err
		}
		res := valuation.CalculateWACCBreakdown(req.WACCInputs)
		result, report.Ticker, report.WACC = res, req.Ticker, &res

	case "dcf":
		var req api.DCFRequest
		if _, err := utils.SmartParse(payload, &req); err != nil {
			return err
		}
		if err := req.Inputs.Validate(); err != nil {
			return err
		}
		if err := valuation.ValidateShares(req.SharesOutstanding); err != nil {
			return err
		}
		res := valuation.CalculateDCF(req.Inputs, req.NetDebt, req.SharesOutstanding)
		result, report.Ticker, report.DCF = res, req.Ticker, &res

	case "reverse":
		req := api.ReverseDCFRequest{ReverseDCFInputs: valuation.DefaultReverseDCFInputs()}
		if _, err := utils.SmartParse(payload, &req); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		res := valuation.CalculateImpliedGrowth(req.ReverseDCFInputs)
		result, report.Ticker, report.Reverse = res, req.Ticker, &res

	case "sensitivity":
		var req api.SensitivityRequest
		if _, err := utils.SmartParse(payload, &req); err != nil {
			return err
		}
		if err := req.Inputs.Validate(); err != nil {
			return err
		}
		if err := valuation.ValidateShares(req.SharesOutstanding); err != nil {
			return err
		}
		waccs, growths := req.WACCRange, req.GrowthRange
		if waccs == nil {
			waccs = valuation.DefaultWACCRange(req.Inputs.WACC)
		}
		if growths == nil {
			growths = valuation.DefaultGrowthRange(req.Inputs.TerminalGrowth)
		}
		if err := valuation.ValidateGrid(waccs, growths); err != nil {
			return err
		}
		points := valuation.SensitivityAnalysis(req.Inputs, req.NetDebt, req.SharesOutstanding, waccs, growths)
		if format == "csv" {
			return export.WriteSensitivityMatrixCSV(w, valuation.SensitivityGrid(points))
		}
		result, report.Ticker, report.Sensitivity = points, req.Ticker, points

	case "assumptions":
		var req api.AssumptionsRequest
		if _, err := utils.SmartParse(payload, &req); err != nil {
			return err
		}
		opts := assumption.DefaultBuildOptions()
		if req.Options != nil {
			opts = *req.Options
		}
		set, err := assumption.Build(strings.ToUpper(req.Ticker), req.History, req.Market, opts)
		if err != nil {
			return err
		}
		if raw := req.OverridesText(); raw != "" {
			o, err := assumption.ParseOverrides(raw)
			if err != nil {
				return err
			}
			set.ApplyOverrides(o)
		}
		if err := set.Projection.Validate(); err != nil {
			return err
		}
		if err := valuation.ValidateShares(set.SharesOutstanding); err != nil {
			return err
		}
		if err := valuation.ValidateGrid(valuation.DefaultWACCRange(set.Projection.WACC), valuation.DefaultGrowthRange(set.Projection.TerminalGrowth)); err != nil {
			set.Notes = append(set.Notes, "Sensitivity grid skipped: "+err.Error())
		} else {
			report.Sensitivity = valuation.SensitivityAnalysis(set.Projection, set.NetDebt, set.SharesOutstanding, nil, nil)
		}
		wacc := valuation.CalculateWACCBreakdown(set.WACCInputs)
		dcf := valuation.CalculateDCF(set.Projection, set.NetDebt, set.SharesOutstanding)
		mult := valuation.MultiplesFromDCF(dcf, set.Projection)
		report.Ticker, report.WACC, report.DCF, report.Multiples = set.Ticker, &wacc, &dcf, &mult
		if set.CurrentPrice > 0 {
			rev := valuation.CalculateImpliedGrowth(set.ReverseInputs())
			report.Reverse = &rev
		}
		result = set

	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}

	switch format {
	case "json":
		return export.WriteJSON(w, result)
	case "md", "markdown":
		_, err := io.WriteString(w, export.MarkdownReport(report))
		return err
	case "html":
		html, err := export.HTMLReport(report)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	case "csv":
		if len(report.Sensitivity) == 0 {
			return fmt.Errorf("csv output needs a sensitivity grid (mode %s has none)", mode)
		}
		return export.WriteSensitivityCSV(w, report.Sensitivity)
	}
	return fmt.Errorf("unknown format: %s", format)
}
