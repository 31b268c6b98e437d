package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/agenda-platform/internal/appointments"
	"github.com/wolfman30/agenda-platform/internal/availability"
	"github.com/wolfman30/agenda-platform/internal/catalog"
	"github.com/wolfman30/agenda-platform/internal/conversation"
	httpmiddleware "github.com/wolfman30/agenda-platform/internal/http/middleware"
	"github.com/wolfman30/agenda-platform/internal/webchat"
	"github.com/wolfman30/agenda-platform/pkg/logging"
)

// Pinger reports storage health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	CatalogHandler      *catalog.Handler
	AvailabilityHandler *availability.Handler
	AppointmentsHandler *appointments.Handler
	ConversationHandler *conversation.Handler
	WhatsAppWebhook     *conversation.WebhookHandler
	WebChat             *webchat.Handler
	MetricsHandler      http.Handler
	DB                  Pinger
	CORSAllowedOrigins  []string
	ChatRateLimiter     *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", health(cfg.DB))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.CatalogHandler != nil {
			api.Get("/providers", cfg.CatalogHandler.ListProviders)
		}
		api.Route("/providers/{providerID}", func(p chi.Router) {
			if cfg.CatalogHandler != nil {
				p.Get("/", cfg.CatalogHandler.GetProvider)
				p.Get("/procedures", cfg.CatalogHandler.ListProcedures)
			}
			if cfg.AvailabilityHandler != nil {
				p.Get("/dates", cfg.AvailabilityHandler.Dates)
				p.Get("/times", cfg.AvailabilityHandler.Times)
			}
			if cfg.AppointmentsHandler != nil {
				p.Get("/appointments", cfg.AppointmentsHandler.ListByProvider)
			}
		})

		if cfg.AppointmentsHandler != nil {
			api.Post("/appointments", cfg.AppointmentsHandler.Create)
			api.Route("/appointments/{appointmentID}", func(a chi.Router) {
				a.Get("/", cfg.AppointmentsHandler.Get)
				a.Delete("/", cfg.AppointmentsHandler.Cancel)
				a.Post("/complete", cfg.AppointmentsHandler.Complete)
			})
			api.Get("/dashboard", cfg.AppointmentsHandler.Dashboard)
			api.Post("/cache/clear", cfg.AppointmentsHandler.ClearCache)
		}

		// Public chat surfaces share a per-IP limit.
		api.Group(func(chat chi.Router) {
			if cfg.ChatRateLimiter != nil {
				chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimiter, cfg.Logger))
			}
			if cfg.ConversationHandler != nil {
				chat.Post("/chat/messages", cfg.ConversationHandler.Message)
				chat.Get("/chat/transcripts/{channelID}", cfg.ConversationHandler.Transcript)
			}
			if cfg.WebChat != nil {
				chat.Get("/chat/ws", cfg.WebChat.HandleWebSocket)
				chat.Get("/chat/history", cfg.WebChat.HandleHistory)
			}
			if cfg.WhatsAppWebhook != nil {
				chat.Get("/whatsapp/webhook", cfg.WhatsAppWebhook.Verify)
				chat.Post("/whatsapp/webhook", cfg.WhatsAppWebhook.Inbound)
			}
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		database := "memory"
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				status, code, database = "degraded", http.StatusServiceUnavailable, "unreachable"
			} else {
				database = "connected"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "database": database})
	}
}
