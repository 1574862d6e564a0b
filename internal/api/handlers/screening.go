package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/sevensplit/internal/contracts"
	"github.com/wonny/sevensplit/internal/screening"
	"github.com/wonny/sevensplit/internal/store"
	"github.com/wonny/sevensplit/internal/strategy"
	"github.com/wonny/sevensplit/pkg/logger"
)

// ScreeningHandler handles screening API endpoints
// ⭐ SSOT: 스크리닝 API 핸들러는 이 구조체에서만
type ScreeningHandler struct {
	orchestrator *screening.Orchestrator
	registry     *strategy.Registry
	store        *store.Store
	logger       *logger.Logger
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(orch *screening.Orchestrator, reg *strategy.Registry, st *store.Store, log *logger.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		orchestrator: orch,
		registry:     reg,
		store:        st,
		logger:       log,
	}
}

// ListStrategies returns metadata for every registered strategy
// GET /api/strategies
func (h *ScreeningHandler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.List())
}

// GetStrategy returns metadata for one strategy
// GET /api/strategies/{id}
func (h *ScreeningHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s, err := h.registry.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, strategy.Describe(s))
}

// StartRunRequest is the POST /api/screening/run body
type StartRunRequest struct {
	StrategyID string `json:"strategy_id"`
}

// StartRun launches a screening run in the background
// POST /api/screening/run
func (h *ScreeningHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.StrategyID != "" {
		if _, err := h.registry.Get(req.StrategyID); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		if h.orchestrator.Running(req.StrategyID) {
			respondError(w, http.StatusConflict, "screening already in progress")
			return
		}
	}

	// The walk outlives the request; progress flows over the websocket
	go func() {
		summary := h.orchestrator.StartRun(context.Background(), req.StrategyID, contracts.TriggerManual)
		if !summary.Success {
			h.logger.WithField("message", summary.Message).Warn("Manual screening run failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"started":     true,
		"strategy_id": req.StrategyID,
	})
}

// ListRuns returns recent run history, newest first
// GET /api/screening/runs?limit=20
func (h *ScreeningHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 200 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = n
	}

	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// ListResults returns passed stocks for a strategy and date.
// Defaults to the latest stored date for the strategy.
// GET /api/screening/results?strategy=seven_split_21&date=2026-08-28
func (h *ScreeningHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	strategyID := r.URL.Query().Get("strategy")
	if strategyID == "" {
		strategyID = "seven_split_21"
	}
	if _, err := h.registry.Get(strategyID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	date, ok := h.resolveDate(w, r, strategyID)
	if !ok {
		return
	}

	stocks, err := h.store.ListPassedByDate(r.Context(), date, strategyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list results")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve results")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategy_id": strategyID,
		"date":        date.Format("2006-01-02"),
		"count":       len(stocks),
		"stocks":      stocks,
	})
}

// GetFunnel returns per-condition funnel stats for a date
// GET /api/screening/funnel?date=2026-08-28
func (h *ScreeningHandler) GetFunnel(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "Missing 'date' parameter (expected YYYY-MM-DD)")
		return
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	stats, err := h.store.ListFunnelStats(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list funnel stats")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve funnel stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":       raw,
		"conditions": stats,
	})
}

// resolveDate picks the requested date or falls back to the latest stored one
func (h *ScreeningHandler) resolveDate(w http.ResponseWriter, r *http.Request, strategyID string) (time.Time, bool) {
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
			return time.Time{}, false
		}
		return date, true
	}

	date, err := h.store.LatestScreenDate(r.Context(), strategyID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve latest screen date")
		respondError(w, http.StatusInternalServerError, "Failed to resolve latest screen date")
		return time.Time{}, false
	}
	return date, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
