package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appconfig "github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/internal/modules/charts"
	"github.com/aristath/frontier/internal/modules/history"
	"github.com/aristath/frontier/internal/modules/results"
	"github.com/aristath/frontier/internal/modules/runs"
)

type handler struct {
	cfg        *appconfig.Config
	runService *runs.Service
	history    *history.Repository
	results    *results.Repository
	charts     *charts.Service
	log        zerolog.Logger
}

func newHandler(cfg Config) *handler {
	return &handler{
		cfg:        cfg.AppConfig,
		runService: cfg.RunService,
		history:    cfg.History,
		results:    cfg.Results,
		charts:     cfg.Charts,
		log:        cfg.Log.With().Str("component", "handlers").Logger(),
	}
}

// runRequest is the POST /api/runs payload. Omitted fields fall back to the
// configured defaults.
type runRequest struct {
	Tickers        []string `json:"tickers"`
	Count          int      `json:"count"`
	Seed           *uint64  `json:"seed"`
	RiskFreeRate   *float64 `json:"risk_free_rate"`
	PortfolioValue *float64 `json:"portfolio_value"`
	LookbackDays   int      `json:"lookback_days"`
	WeightMin      *float64 `json:"weight_min"`
	WeightMax      *float64 `json:"weight_max"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateRun runs the full pipeline synchronously and returns the run
// summary with the frontier and the optimal allocation.
func (h *handler) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	params := h.buildParams(req)
	result, err := h.runService.Execute(r.Context(), params)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

func (h *handler) buildParams(req runRequest) runs.Params {
	params := runs.Params{
		Tickers:        req.Tickers,
		Count:          req.Count,
		Seed:           req.Seed,
		RiskFreeRate:   h.cfg.RiskFreeRate,
		PortfolioValue: h.cfg.PortfolioValue,
		LookbackDays:   req.LookbackDays,
		WeightMin:      h.cfg.WeightMin,
		WeightMax:      h.cfg.WeightMax,
	}
	if len(params.Tickers) == 0 {
		params.Tickers = h.cfg.Universe
	}
	if params.Count == 0 {
		params.Count = h.cfg.SimulationCount
	}
	if params.Seed == nil {
		params.Seed = h.cfg.Seed
	}
	if params.LookbackDays == 0 {
		params.LookbackDays = h.cfg.LookbackDays
	}
	if req.RiskFreeRate != nil {
		params.RiskFreeRate = *req.RiskFreeRate
	}
	if req.PortfolioValue != nil {
		params.PortfolioValue = *req.PortfolioValue
	}
	if req.WeightMin != nil {
		params.WeightMin = *req.WeightMin
	}
	if req.WeightMax != nil {
		params.WeightMax = *req.WeightMax
	}
	return params
}

func (h *handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.results.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *handler) handleGetTrials(w http.ResponseWriter, r *http.Request) {
	trials, err := h.results.GetTrials(chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trials)
}

func (h *handler) handleGetFrontier(w http.ResponseWriter, r *http.Request) {
	points, err := h.results.GetFrontier(chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

func (h *handler) handleGetFrontierChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	points, err := h.results.GetFrontier(id)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	img, err := h.charts.FrontierPNG("Efficient Frontier", points)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to render frontier chart")
		h.writeError(w, http.StatusInternalServerError, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (h *handler) handleGetOptimal(w http.ResponseWriter, r *http.Request) {
	allocations, err := h.results.GetOptimal(chi.URLParam(r, "id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, allocations)
}

// handleIngestPrices accepts a batch of price points from the data-ingestion
// collaborator.
func (h *handler) handleIngestPrices(w http.ResponseWriter, r *http.Request) {
	var points []history.PricePoint
	if err := json.NewDecoder(r.Body).Decode(&points); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.history.SavePrices(points); err != nil {
		h.log.Error().Err(err).Msg("Failed to save prices")
		h.writeError(w, http.StatusInternalServerError, "failed to save prices")
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int{"saved": len(points)})
}

func (h *handler) handleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.history.Tickers()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list tickers")
		h.writeError(w, http.StatusInternalServerError, "failed to list tickers")
		return
	}
	h.writeJSON(w, http.StatusOK, tickers)
}

// writeDomainError maps the error taxonomy to HTTP statuses. Convergence
// failures include the best-found candidate so callers can fall back to the
// best sampled one.
func (h *handler) writeDomainError(w http.ResponseWriter, err error) {
	var configErr *domain.ConfigError
	var dataErr *domain.DataError
	var convErr *domain.ConvergenceError

	switch {
	case errors.As(err, &configErr):
		h.writeError(w, http.StatusBadRequest, configErr.Error())
	case errors.As(err, &dataErr):
		h.writeError(w, http.StatusUnprocessableEntity, dataErr.Error())
	case errors.As(err, &convErr):
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":                convErr.Error(),
			"best_weights":         convErr.BestWeights,
			"constraint_violation": convErr.ConstraintViolation,
			"iterations":           convErr.Iterations,
		})
	default:
		h.log.Error().Err(err).Msg("Run failed")
		h.writeError(w, http.StatusInternalServerError, "run failed")
	}
}

func (h *handler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		h.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	h.log.Error().Err(err).Msg("Lookup failed")
	h.writeError(w, http.StatusInternalServerError, "lookup failed")
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
