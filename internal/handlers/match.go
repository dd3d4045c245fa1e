package handlers

import (
	"net/http"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// MatchHandler handles match-related HTTP requests
type MatchHandler struct {
	matchService *services.MatchService
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(matchService *services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

// DatesRequest carries a list of YYYY-MM-DD dates
type DatesRequest struct {
	Dates []string `json:"dates" validate:"max=366,dive,required"`
}

// ListMatches handles GET /api/v1/couples/{couple_id}/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	matches, err := h.matchService.GetForCouple(r.Context(), userID, chi.URLParam(r, "couple_id"))
	if err != nil {
		respondServiceError(w, err, userID, "Failed to list matches")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// Stats handles GET /api/v1/couples/{couple_id}/stats
func (h *MatchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	stats, err := h.matchService.GetStatsForCouple(r.Context(), userID, chi.URLParam(r, "couple_id"))
	if err != nil {
		respondServiceError(w, err, userID, "Failed to compute stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// UpdateStatus handles PATCH /api/v1/matches/{match_id}/status
func (h *MatchHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.UpdateMatchStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	matchID, err := h.matchService.UpdateStatus(r.Context(), userID, chi.URLParam(r, "match_id"), req)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to update match status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"match_id": matchID})
}

// SetPartnerDates handles PUT /api/v1/matches/{match_id}/partner-dates
func (h *MatchHandler) SetPartnerDates(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req DatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dates, err := h.matchService.SetPartnerDates(r.Context(), userID, chi.URLParam(r, "match_id"), req.Dates)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to set partner dates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

// CommonDates handles POST /api/v1/matches/{match_id}/common-dates
func (h *MatchHandler) CommonDates(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req DatesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	common, err := h.matchService.CommonDates(r.Context(), userID, chi.URLParam(r, "match_id"), req.Dates)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to compute common dates")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"common_dates": common})
}
