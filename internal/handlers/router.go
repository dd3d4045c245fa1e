package handlers

import (
	"net/http"

	"pair-date-backend/internal/middleware"
	"pair-date-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// Services bundles what the HTTP layer serves
type Services struct {
	Users     *services.UserService
	Couples   *services.CoupleService
	Proposals *services.ProposalService
	Swipes    *services.SwipeService
	Matches   *services.MatchService
	Plans     *services.PlanService
	Hub       *services.WSHub
}

// RouterOptions configures cross-cutting HTTP concerns
type RouterOptions struct {
	AllowedOrigins []string
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	// RequestLogging enables chi's access log
	RequestLogging bool
}

// NewRouter wires every route of the API
func NewRouter(svc Services, opts RouterOptions) http.Handler {
	userHandler := NewUserHandler(svc.Users)
	coupleHandler := NewCoupleHandler(svc.Couples)
	proposalHandler := NewProposalHandler(svc.Proposals)
	swipeHandler := NewSwipeHandler(svc.Swipes)
	matchHandler := NewMatchHandler(svc.Matches)
	planHandler := NewPlanHandler(svc.Plans)
	wsHandler := NewWebSocketHandler(svc.Hub, svc.Users, svc.Couples, opts.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	if opts.RequestLogging {
		r.Use(chiMiddleware.Logger)
	}
	r.Use(chiMiddleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(svc.Users))

			r.Get("/users/me", userHandler.Me)
			r.Put("/users/me/push-token", userHandler.SetPushToken)

			r.Post("/couples", coupleHandler.CreateCouple)
			r.Post("/couples/join", coupleHandler.JoinCouple)
			r.Get("/couples/me", coupleHandler.GetMyCouple)
			r.Delete("/couples/me", coupleHandler.LeaveCouple)
			r.Get("/couples/me/qr", coupleHandler.InviteQR)
			r.Get("/couples/invite/{code}", coupleHandler.GetByInviteCode)
			r.Get("/couples/{couple_id}", coupleHandler.GetCouple)
			r.Get("/couples/{couple_id}/matches", matchHandler.ListMatches)
			r.Get("/couples/{couple_id}/stats", matchHandler.Stats)
			r.Post("/couples/{couple_id}/plans", planHandler.CreatePlan)
			r.Get("/couples/{couple_id}/plans", planHandler.ListPlans)

			r.Get("/proposals/queue", proposalHandler.Queue)
			r.Post("/proposals", proposalHandler.CreateProposal)
			r.Post("/proposals/upload-url", proposalHandler.UploadURL)
			r.Delete("/proposals/{proposal_id}", proposalHandler.DeactivateProposal)

			r.Post("/swipes", swipeHandler.CreateSwipe)

			r.Patch("/matches/{match_id}/status", matchHandler.UpdateStatus)
			r.Put("/matches/{match_id}/partner-dates", matchHandler.SetPartnerDates)
			r.Post("/matches/{match_id}/common-dates", matchHandler.CommonDates)

			r.Get("/plans/{plan_id}", planHandler.GetPlan)
			r.Put("/plans/{plan_id}", planHandler.UpdatePlan)
			r.Post("/plans/{plan_id}/confirm", planHandler.ConfirmPlan)
			r.Delete("/plans/{plan_id}", planHandler.DeletePlan)
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}
