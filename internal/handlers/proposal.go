package handlers

import (
	"net/http"
	"strconv"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// ProposalHandler handles proposal-related HTTP requests
type ProposalHandler struct {
	proposalService *services.ProposalService
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(proposalService *services.ProposalService) *ProposalHandler {
	return &ProposalHandler{proposalService: proposalService}
}

// UploadURLRequest asks for a presigned image upload
type UploadURLRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

// CreateProposal handles POST /api/v1/proposals
func (h *ProposalHandler) CreateProposal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.CreateProposalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	proposal, err := h.proposalService.Create(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to create proposal")
		return
	}
	respondJSON(w, http.StatusCreated, proposal)
}

// Queue handles GET /api/v1/proposals/queue
func (h *ProposalHandler) Queue(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	proposals, err := h.proposalService.Queue(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to load proposal queue")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}

// DeactivateProposal handles DELETE /api/v1/proposals/{proposal_id}
func (h *ProposalHandler) DeactivateProposal(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.proposalService.Deactivate(r.Context(), userID, chi.URLParam(r, "proposal_id")); err != nil {
		respondServiceError(w, err, userID, "Failed to remove proposal")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadURL handles POST /api/v1/proposals/upload-url
func (h *ProposalHandler) UploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req UploadURLRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	target, err := h.proposalService.UploadURL(r.Context(), userID, req.ContentType)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to create upload URL")
		return
	}
	respondJSON(w, http.StatusOK, target)
}
