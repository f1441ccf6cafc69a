// Package handlers provides HTTP handlers for the dashboard.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/marketboard/internal/clientdata"
	"github.com/aristath/marketboard/internal/clients/coingecko"
	"github.com/aristath/marketboard/internal/domain"
	"github.com/aristath/marketboard/internal/modules/charts"
	"github.com/aristath/marketboard/internal/modules/dashboard"
	"github.com/rs/zerolog"
)

// defaultHistoryDays is used when the history request has no days parameter.
const defaultHistoryDays = 30

// Handler handles dashboard HTTP requests
type Handler struct {
	controller *dashboard.Controller
	cacheRepo  *clientdata.Repository
	log        zerolog.Logger
}

// NewHandler creates a new dashboard handler
func NewHandler(
	controller *dashboard.Controller,
	cacheRepo *clientdata.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		controller: controller,
		cacheRepo:  cacheRepo,
		log:        log.With().Str("handler", "dashboard").Logger(),
	}
}

// HandleGetAssets handles GET /api/assets
// Query parameters tab, filter and q update the stored filter state before the view is built.
// Changing tab triggers a reload.
func (h *Handler) HandleGetAssets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if tabStr := query.Get("tab"); tabStr != "" {
		tab, err := domain.ParseAssetType(tabStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if tab != h.controller.State().Filter.ActiveTab {
			err := h.controller.SetTab(r.Context(), tab)
			if errors.Is(err, dashboard.ErrLoadInProgress) {
				h.writeError(w, http.StatusConflict, err.Error())
				return
			}
			if err != nil {
				// The view still carries the error flags and any previous data
				h.log.Warn().Err(err).Str("tab", string(tab)).Msg("Tab switch load failed")
			}
		}
	}
	if query.Has("filter") {
		h.controller.SetFilter(domain.ParseFilterMode(query.Get("filter")))
	}
	if query.Has("q") {
		h.controller.SetSearch(query.Get("q"))
	}

	h.writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleRefresh handles POST /api/assets/refresh
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.controller.Load(r.Context())
	if errors.Is(err, dashboard.ErrLoadInProgress) {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, h.controller.View())
}

// HandleGetAsset handles GET /api/assets/{id}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.controller.OpenDetail(r.Context(), id)
	if err != nil {
		h.writeAssetError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, detail)
}

// HandleCloseDetail handles DELETE /api/assets/{id}/detail
func (h *Handler) HandleCloseDetail(w http.ResponseWriter, r *http.Request) {
	h.controller.CloseDetail()
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetHistory handles GET /api/assets/{id}/history
// days is a positive integer or "max"; group (day, week, month) adds an aggregated series.
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request, id string) {
	rng := coingecko.Days(defaultHistoryDays)
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		parsed, err := coingecko.ParseHistoryRange(daysStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rng = parsed
	}

	var grouping charts.Grouping
	if groupStr := r.URL.Query().Get("group"); groupStr != "" {
		parsed, err := charts.ParseGrouping(groupStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		grouping = parsed
	}

	points, err := h.controller.History(r.Context(), id, rng)
	if err != nil {
		h.writeAssetError(w, err)
		return
	}

	response := map[string]interface{}{
		"id":      id,
		"range":   rng.String(),
		"prices":  points,
		"summary": charts.Summarize(points),
	}
	if grouping != "" {
		response["group"] = grouping
		response["aggregated"] = charts.Aggregate(points, grouping)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetScore handles GET /api/assets/{id}/score
func (h *Handler) HandleGetScore(w http.ResponseWriter, r *http.Request, id string) {
	report, err := h.controller.ScoreBreakdown(id)
	if err != nil {
		h.writeAssetError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleGetShareLink handles GET /api/assets/{id}/share
func (h *Handler) HandleGetShareLink(w http.ResponseWriter, r *http.Request, id string) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"id":  id,
		"url": h.controller.ShareLink(id),
	})
}

// HandleGetState handles GET /api/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.controller.State())
}

// HandleGetCharts handles GET /api/charts
func (h *Handler) HandleGetCharts(w http.ResponseWriter, r *http.Request) {
	series := h.controller.LoadCharts(r.Context())

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"charts": series,
		"count":  len(series),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleClearCache handles DELETE /api/cache/{prefix}
// crypto, stocks and steam are accepted as shorthands for their key prefixes.
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request, prefix string) {
	prefix = cachePrefix(prefix)
	if prefix == "" {
		h.writeError(w, http.StatusBadRequest, "prefix is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	removed := h.cacheRepo.Clear(ctx, prefix)
	h.log.Info().Str("prefix", prefix).Int("removed", removed).Msg("Cache cleared")

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"prefix":  prefix,
		"removed": removed,
	})
}

func cachePrefix(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crypto":
		return clientdata.PrefixCrypto
	case "stock", "stocks":
		return clientdata.PrefixStocks
	case "steam":
		return clientdata.PrefixSteam
	default:
		return strings.TrimSpace(name)
	}
}

func (h *Handler) writeAssetError(w http.ResponseWriter, err error) {
	if errors.Is(err, dashboard.ErrAssetNotFound) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.log.Error().Err(err).Msg("Asset request failed")
	h.writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
