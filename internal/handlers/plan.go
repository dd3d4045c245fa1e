package handlers

import (
	"net/http"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// PlanHandler handles plan-related HTTP requests
type PlanHandler struct {
	planService *services.PlanService
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(planService *services.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// CreatePlan handles POST /api/v1/couples/{couple_id}/plans
func (h *PlanHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.PlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	planID, err := h.planService.Create(r.Context(), userID, chi.URLParam(r, "couple_id"), req)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to create plan")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"plan_id": planID})
}

// ListPlans handles GET /api/v1/couples/{couple_id}/plans
func (h *PlanHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	plans, err := h.planService.List(r.Context(), userID, chi.URLParam(r, "couple_id"))
	if err != nil {
		respondServiceError(w, err, userID, "Failed to list plans")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// GetPlan handles GET /api/v1/plans/{plan_id}
func (h *PlanHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	plan, err := h.planService.Get(r.Context(), userID, chi.URLParam(r, "plan_id"))
	if err != nil {
		respondServiceError(w, err, userID, "Failed to get plan")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// UpdatePlan handles PUT /api/v1/plans/{plan_id}
func (h *PlanHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.PlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	planID, err := h.planService.Update(r.Context(), userID, chi.URLParam(r, "plan_id"), req)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to update plan")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"plan_id": planID})
}

// ConfirmPlan handles POST /api/v1/plans/{plan_id}/confirm
func (h *PlanHandler) ConfirmPlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req services.ConfirmPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	plan, err := h.planService.Confirm(r.Context(), userID, chi.URLParam(r, "plan_id"), req)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to confirm plan")
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// DeletePlan handles DELETE /api/v1/plans/{plan_id}
func (h *PlanHandler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.planService.Delete(r.Context(), userID, chi.URLParam(r, "plan_id")); err != nil {
		respondServiceError(w, err, userID, "Failed to delete plan")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
