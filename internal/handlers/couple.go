package handlers

import (
	"net/http"
	"strconv"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// CoupleHandler handles couple-related HTTP requests
type CoupleHandler struct {
	coupleService *services.CoupleService
}

// NewCoupleHandler creates a new couple handler
func NewCoupleHandler(coupleService *services.CoupleService) *CoupleHandler {
	return &CoupleHandler{coupleService: coupleService}
}

// JoinCoupleRequest represents the request body for joining a couple
type JoinCoupleRequest struct {
	InviteCode string `json:"invite_code" validate:"required"`
}

// CreateCouple handles POST /api/v1/couples
func (h *CoupleHandler) CreateCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	resp, err := h.coupleService.Create(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to create couple")
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// JoinCouple handles POST /api/v1/couples/join
func (h *CoupleHandler) JoinCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req JoinCoupleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	coupleID, err := h.coupleService.Join(r.Context(), userID, req.InviteCode)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to join couple")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"couple_id": coupleID})
}

// GetMyCouple handles GET /api/v1/couples/me
func (h *CoupleHandler) GetMyCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	view, err := h.coupleService.GetForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to get couple")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetCouple handles GET /api/v1/couples/{couple_id}
func (h *CoupleHandler) GetCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	coupleID := chi.URLParam(r, "couple_id")

	view, err := h.coupleService.GetForUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to get couple")
		return
	}
	if view.ID != coupleID {
		respondError(w, "Forbidden", http.StatusForbidden)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetByInviteCode handles GET /api/v1/couples/invite/{code}
func (h *CoupleHandler) GetByInviteCode(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	couple, err := h.coupleService.GetByInviteCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondServiceError(w, err, userID, "Failed to look up invite code")
		return
	}
	if couple == nil {
		respondError(w, "Invite code not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, couple)
}

// InviteQR handles GET /api/v1/couples/me/qr
func (h *CoupleHandler) InviteQR(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	size := 256
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > 1024 {
			respondError(w, "size must be between 64 and 1024", http.StatusBadRequest)
			return
		}
		size = n
	}

	png, err := h.coupleService.InviteQR(r.Context(), userID, size)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to render invite QR")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// LeaveCouple handles DELETE /api/v1/couples/me
func (h *CoupleHandler) LeaveCouple(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.coupleService.Leave(r.Context(), userID); err != nil {
		respondServiceError(w, err, userID, "Failed to leave couple")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
