package valuation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"equity_valuation/pkg/core/assumption"
	"equity_valuation/pkg/core/config"
	"equity_valuation/pkg/core/export"
	"equity_valuation/pkg/core/store"
	core "equity_valuation/pkg/core/valuation"
)

// Handler serves the valuation endpoints. runs may be nil, in which case nothing is persisted.
type Handler struct {
	cfg  *config.Config
	runs *store.RunStore
	log  zerolog.Logger
}

// NewHandler creates a new valuation handler
func NewHandler(cfg *config.Config, runs *store.RunStore, log zerolog.Logger) *Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Handler{
		cfg:  cfg,
		runs: runs,
		log:  log.With().Str("component", "valuation_api").Logger(),
	}
}

// Routes mounts the valuation endpoints on a fresh router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/wacc", h.HandleWACC)
	r.Post("/dcf", h.HandleDCF)
	r.Post("/reverse-dcf", h.HandleReverseDCF)
	r.Post("/sensitivity", h.HandleSensitivity)
	r.Post("/assumptions", h.HandleAssumptions)
	r.Get("/runs", h.HandleListRuns)
	r.Get("/runs/{id}", h.HandleGetRun)
	r.Get("/report/{id}", h.HandleReport)
	return r
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

type WACCRequest struct {
	Ticker string `json:"ticker"`
	core.WACCInputs
}

type DCFRequest struct {
	Ticker            string                `json:"ticker"`
	Inputs            core.ProjectionInputs `json:"inputs"`
	NetDebt           float64               `json:"net_debt"`
	SharesOutstanding float64               `json:"shares_outstanding"`
}

type ReverseDCFRequest struct {
	Ticker string `json:"ticker"`
	core.ReverseDCFInputs
}

type SensitivityRequest struct {
	DCFRequest
	WACCRange   []float64 `json:"wacc_range,omitempty"`
	GrowthRange []float64 `json:"growth_range,omitempty"`
}

type SensitivityResponse struct {
	Points []core.SensitivityPoint `json:"points"`
	Matrix core.SensitivityMatrix  `json:"matrix"`
}

type AssumptionsRequest struct {
	Ticker    string                      `json:"ticker"`
	History   []assumption.HistoricalYear `json:"history"`
	Market    assumption.MarketData       `json:"market"`
	Options   *assumption.BuildOptions    `json:"options,omitempty"`
	Overrides json.RawMessage             `json:"overrides,omitempty"` // Object or lenient string
	Peers     []core.PeerComparable       `json:"peers,omitempty"`
}

// OverridesText returns the override payload as text, unwrapping a JSON string
func (r AssumptionsRequest) OverridesText() string {
	if len(r.Overrides) == 0 || string(r.Overrides) == "null" {
		return ""
	}
	var text string
	if json.Unmarshal(r.Overrides, &text) == nil {
		return text
	}
	return string(r.Overrides)
}

type AssumptionsResponse struct {
	Assumptions *assumption.AssumptionSet `json:"assumptions"`
	WACC        core.WACCBreakdown        `json:"wacc"`
	DCF         core.DCFResult            `json:"dcf"`
	Multiples   core.ImpliedMultiples     `json:"multiples"`
	Comps       *core.CompsRange          `json:"comps,omitempty"`
	Reverse     *core.ReverseDCFResult    `json:"reverse_dcf,omitempty"`
	Sensitivity []core.SensitivityPoint   `json:"sensitivity"`
}

// Envelope wraps every computed result with the ID it was stored under
type Envelope struct {
	RunID  string      `json:"run_id,omitempty"`
	Result interface{} `json:"result"`
}

// =============================================================================
// HANDLERS
// =============================================================================

func (h *Handler) HandleWACC(w http.ResponseWriter, r *http.Request) {
	var req WACCRequest
	if !decode(w, r, &req) {
		return
	}

	// Out-of-range inputs are computed, not rejected
	res := core.CalculateWACCBreakdown(req.WACCInputs)
	h.log.Debug().Str("ticker", req.Ticker).Float64("wacc", res.WACC).Msg("WACC computed")

	h.respond(w, r, store.KindWACC, req.Ticker, req, res)
}

func (h *Handler) HandleDCF(w http.ResponseWriter, r *http.Request) {
	var req DCFRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validateDCF(req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := core.CalculateDCF(req.Inputs, req.NetDebt, req.SharesOutstanding)
	if !res.IsFinite() {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("valuation produced a non-finite result"))
		return
	}
	h.log.Info().
		Str("ticker", req.Ticker).
		Float64("per_share", res.IntrinsicValuePerShare).
		Float64("terminal_share", res.TerminalShare()).
		Msg("DCF computed")

	h.respond(w, r, store.KindDCF, req.Ticker, req, res)
}

func (h *Handler) HandleReverseDCF(w http.ResponseWriter, r *http.Request) {
	req := ReverseDCFRequest{ReverseDCFInputs: core.DefaultReverseDCFInputs()}
	if h.cfg.Market.TaxRate > 0 {
		req.TaxRate = h.cfg.Market.TaxRate
	}
	if !decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := core.CalculateImpliedGrowth(req.ReverseDCFInputs)
	evt := h.log.Info()
	if !res.Converged {
		evt = h.log.Warn()
	}
	evt.Str("ticker", req.Ticker).
		Float64("implied_cagr", res.ImpliedRevenueCAGR).
		Bool("reasonable", res.IsReasonable).
		Int("iterations", res.Iterations).
		Msg("Reverse DCF solved")

	h.respond(w, r, store.KindReverseDCF, req.Ticker, req, res)
}

func (h *Handler) HandleSensitivity(w http.ResponseWriter, r *http.Request) {
	var req SensitivityRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validateDCF(req.DCFRequest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	waccs, growths := gridRanges(req.Inputs, req.WACCRange, req.GrowthRange)
	if err := core.ValidateGrid(waccs, growths); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	points := core.SensitivityAnalysis(req.Inputs, req.NetDebt, req.SharesOutstanding, waccs, growths)
	if !core.FiniteGrid(points) {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("sensitivity grid produced a non-finite value"))
		return
	}
	res := SensitivityResponse{Points: points, Matrix: core.SensitivityGrid(points)}
	h.log.Debug().Str("ticker", req.Ticker).Int("points", len(points)).Msg("Sensitivity grid computed")

	h.respond(w, r, store.KindSensitivity, req.Ticker, req, res)
}

func (h *Handler) HandleAssumptions(w http.ResponseWriter, r *http.Request) {
	var req AssumptionsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Ticker == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("ticker is required"))
		return
	}

	market := req.Market
	if market.RiskFreeRate == 0 {
		market.RiskFreeRate = h.cfg.Market.RiskFreeRate
	}
	if market.EquityRiskPremium == 0 {
		market.EquityRiskPremium = h.cfg.Market.EquityRiskPremium
	}
	opts := h.cfg.Assumptions
	if req.Options != nil {
		opts = *req.Options
	}

	set, err := assumption.Build(strings.ToUpper(req.Ticker), req.History, market, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if raw := req.OverridesText(); raw != "" {
		o, err := assumption.ParseOverrides(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		set.ApplyOverrides(o)
	}

	if err := set.Projection.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res := AssumptionsResponse{
		Assumptions: set,
		WACC:        core.CalculateWACCBreakdown(set.WACCInputs),
		DCF:         core.CalculateDCF(set.Projection, set.NetDebt, set.SharesOutstanding),
	}
	if !res.DCF.IsFinite() {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("valuation produced a non-finite result"))
		return
	}
	// The default grid can reach wacc <= g when the spread is thin; report without it then
	waccs, growths := gridRanges(set.Projection, nil, nil)
	if err := core.ValidateGrid(waccs, growths); err != nil {
		set.Notes = append(set.Notes, "Sensitivity grid skipped: "+err.Error())
	} else {
		res.Sensitivity = core.SensitivityAnalysis(set.Projection, set.NetDebt, set.SharesOutstanding, waccs, growths)
	}
	res.Multiples = core.MultiplesFromDCF(res.DCF, set.Projection)
	if len(req.Peers) > 0 {
		comps := core.CompareToPeers(res.DCF, set.Projection, set.NetDebt, set.SharesOutstanding, req.Peers, false)
		res.Comps = &comps
	}
	if set.CurrentPrice > 0 {
		rev := core.CalculateImpliedGrowth(set.ReverseInputs())
		res.Reverse = &rev
	}
	h.log.Info().
		Str("ticker", set.Ticker).
		Str("assumption_set", set.ID).
		Float64("wacc", set.Projection.WACC).
		Float64("per_share", res.DCF.IntrinsicValuePerShare).
		Msg("Assumptions built")

	h.respond(w, r, store.KindAssumptions, set.Ticker, req, res)
}

func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run store not configured"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.List(r.Context(), r.URL.Query().Get("ticker"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	report, err := ReportFromRun(run)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, export.MarkdownReport(report))
	case "html":
		html, err := export.HTMLReport(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	case "csv":
		if len(report.Sensitivity) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("run %s has no sensitivity grid", run.ID))
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_%s.csv", strings.ToLower(run.Ticker), run.ID))
		if err := export.WriteSensitivityCSV(w, report.Sensitivity); err != nil {
			h.log.Error().Err(err).Str("run_id", run.ID).Msg("CSV export failed")
		}
	case "json":
		writeJSON(w, http.StatusOK, report)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
	}
}

// ReportFromRun rebuilds an export report from a stored run's result
func ReportFromRun(run *store.Run) (export.Report, error) {
	rep := export.Report{Ticker: run.Ticker, GeneratedAt: run.CreatedAt}

	var err error
	switch run.Kind {
	case store.KindWACC:
		var res core.WACCBreakdown
		err = json.Unmarshal(run.Result, &res)
		rep.WACC = &res
	case store.KindDCF:
		var res core.DCFResult
		err = json.Unmarshal(run.Result, &res)
		rep.DCF = &res
	case store.KindReverseDCF:
		var res core.ReverseDCFResult
		err = json.Unmarshal(run.Result, &res)
		rep.Reverse = &res
	case store.KindSensitivity:
		var res SensitivityResponse
		err = json.Unmarshal(run.Result, &res)
		rep.Sensitivity = res.Points
	case store.KindAssumptions:
		var res AssumptionsResponse
		err = json.Unmarshal(run.Result, &res)
		rep.WACC = &res.WACC
		rep.DCF = &res.DCF
		rep.Multiples = &res.Multiples
		rep.Reverse = res.Reverse
		rep.Sensitivity = res.Sensitivity
	default:
		return rep, fmt.Errorf("unknown run kind %q", run.Kind)
	}
	if err != nil {
		return rep, fmt.Errorf("failed to decode %s run %s: %w", run.Kind, run.ID, err)
	}
	return rep, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// gridRanges fills nil ranges with the defaults around the projection's own WACC and growth
func gridRanges(in core.ProjectionInputs, waccRange, growthRange []float64) ([]float64, []float64) {
	if waccRange == nil {
		waccRange = core.DefaultWACCRange(in.WACC)
	}
	if growthRange == nil {
		growthRange = core.DefaultGrowthRange(in.TerminalGrowth)
	}
	return waccRange, growthRange
}

func validateDCF(req DCFRequest) error {
	if err := req.Inputs.Validate(); err != nil {
		return err
	}
	return core.ValidateShares(req.SharesOutstanding)
}

// respond persists the run (best effort) and writes the envelope
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, kind, ticker string, input, result interface{}) {
	env := Envelope{Result: result}

	if h.runs != nil {
		inJSON, inErr := json.Marshal(input)
		outJSON, outErr := json.Marshal(result)
		if err := errors.Join(inErr, outErr); err != nil {
			h.log.Warn().Err(err).Str("kind", kind).Msg("Failed to encode run")
		} else {
			run := &store.Run{Ticker: ticker, Kind: kind, Input: inJSON, Result: outJSON}
			if err := h.runs.Save(r.Context(), run); err != nil {
				h.log.Warn().Err(err).Str("kind", kind).Msg("Failed to save run")
			} else {
				env.RunID = run.ID
			}
		}
	}

	writeJSON(w, http.StatusOK, env)
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run store not configured"))
		return nil, false
	}
	run, err := h.runs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return run, true
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// writeJSON encodes before writing the header so an encoding failure still reaches the client
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
