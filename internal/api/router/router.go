package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/triage-concierge/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/triage-concierge/internal/http/middleware"
	"github.com/wolfman30/triage-concierge/internal/webchat"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Sessions           *handlers.SessionsHandler
	WebSocket          *webchat.Handler
	Tokens             *httpmiddleware.SessionTokens
	OpenLimiter        *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	if cfg.Sessions == nil {
		panic("router: sessions handler required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1/sessions", func(r chi.Router) {
		r.With(httpmiddleware.RateLimit(cfg.OpenLimiter)).Post("/", cfg.Sessions.Open)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Use(cfg.Tokens.RequireSession(handlers.SessionIDParam))

			if cfg.WebSocket != nil {
				r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
					cfg.WebSocket.Serve(w, req, handlers.SessionIDParam(req))
				})
			}

			r.Group(func(r chi.Router) {
				if cfg.RequestTimeout > 0 {
					r.Use(middleware.Timeout(cfg.RequestTimeout))
				}
				r.Get("/messages", cfg.Sessions.Messages)
				r.Post("/input", cfg.Sessions.Input)
				r.Post("/actions", cfg.Sessions.Action)
				r.Post("/appointments", cfg.Sessions.BookAppointment)
				r.Put("/appointments/{appointmentID}", cfg.Sessions.Reschedule)
				r.Post("/test-bookings", cfg.Sessions.BookTests)
				r.Delete("/", cfg.Sessions.Clear)
			})
		})
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
