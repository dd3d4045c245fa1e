package handlers

import (
	"net/http"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUserRequest represents the request body for registering
type CreateUserRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=60"`
}

// PushTokenRequest sets or clears the device push token
type PushTokenRequest struct {
	PushToken *string `json:"push_token" validate:"omitempty,max=512"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.userService.CreateUser(r.Context(), req.DisplayName)
	if err != nil {
		respondServiceError(w, err, "", "Failed to create user")
		return
	}

	log.Info().Str("user_id", resp.User.ID).Msg("User created")
	respondJSON(w, http.StatusCreated, resp)
}

// Me handles GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, userID, "Failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// SetPushToken handles PUT /api/v1/users/me/push-token
func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req PushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.userService.SetPushToken(r.Context(), userID, req.PushToken); err != nil {
		respondServiceError(w, err, userID, "Failed to set push token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
