package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"pair-date-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub           *services.WSHub
	userService   *services.UserService
	coupleService *services.CoupleService
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. An empty
// allowedOrigins list accepts any origin.
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	coupleService *services.CoupleService,
	allowedOrigins []string,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		userService:   userService,
		coupleService: coupleService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// HandleWebSocket handles GET /ws?token=...
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	ctx := r.Context()
	partnerID := h.sendCoupleStatus(ctx, userID)
	h.hub.NotifyPartnerStatus(partnerID, true)
	defer func() {
		// the partner may have changed while connected
		h.hub.NotifyPartnerStatus(h.partnerID(context.Background(), userID), false)
	}()

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(userID, "Invalid message format")
			continue
		}

		h.handleMessage(ctx, userID, msg)
	}
}

// handleMessage processes incoming WebSocket messages
func (h *WebSocketHandler) handleMessage(ctx context.Context, userID string, msg services.WSMessage) {
	switch msg.Type {
	case services.EventPing:
		h.hub.Publish(userID, services.WSMessage{Type: services.EventPong})
	case services.EventCoupleStatus:
		h.sendCoupleStatus(ctx, userID)
	default:
		h.sendError(userID, "Unknown message type")
	}
}

// sendCoupleStatus tells the user about its couple and returns the partner ID
func (h *WebSocketHandler) sendCoupleStatus(ctx context.Context, userID string) string {
	view, err := h.coupleService.GetForUser(ctx, userID)
	if err != nil {
		h.hub.Publish(userID, services.WSMessage{
			Type: services.EventCoupleStatus,
			Data: map[string]interface{}{"has_couple": false},
		})
		return ""
	}

	partnerID := ""
	for _, m := range view.Members {
		if m.ID != userID {
			partnerID = m.ID
		}
	}
	h.hub.Publish(userID, services.WSMessage{
		Type: services.EventCoupleStatus,
		Data: map[string]interface{}{
			"has_couple":     true,
			"couple_id":      view.ID,
			"status":         view.Status,
			"partner_online": partnerID != "" && h.hub.IsOnline(partnerID),
		},
	})
	return partnerID
}

func (h *WebSocketHandler) partnerID(ctx context.Context, userID string) string {
	view, err := h.coupleService.GetForUser(ctx, userID)
	if err != nil {
		return ""
	}
	for _, m := range view.Members {
		if m.ID != userID {
			return m.ID
		}
	}
	return ""
}

// sendError sends an error message to a user
func (h *WebSocketHandler) sendError(userID, message string) {
	h.hub.Publish(userID, services.WSMessage{
		Type:    services.EventError,
		Message: message,
	})
}
