package handlers

import (
	"net/http"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"
)

// SwipeHandler handles swipe HTTP requests
type SwipeHandler struct {
	swipeService *services.SwipeService
}

// NewSwipeHandler creates a new swipe handler
func NewSwipeHandler(swipeService *services.SwipeService) *SwipeHandler {
	return &SwipeHandler{swipeService: swipeService}
}

// CreateSwipe handles POST /api/v1/swipes
func (h *SwipeHandler) CreateSwipe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.SwipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.swipeService.CreateAndCheckMatch(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to record swipe")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
