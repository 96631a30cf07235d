package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mentoji/platform/internal/assistant"
	"github.com/mentoji/platform/internal/consultations"
	httpmiddleware "github.com/mentoji/platform/internal/http/middleware"
	"github.com/mentoji/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger               *logging.Logger
	ConsultationsHandler *consultations.Handler
	AssistantHandler     *assistant.Handler
	MetricsHandler       http.Handler
	CORSAllowedOrigins   []string
	AuthJWTSecret        string
	RateLimitPerSecond   float64
	RateLimitBurst       int
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
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API
	r.Route("/api", func(api chi.Router) {
		if cfg.AuthJWTSecret != "" {
			api.Use(httpmiddleware.ResolveCaller(cfg.AuthJWTSecret))
		}
		api.Get("/me", whoAmI)
		if cfg.ConsultationsHandler != nil {
			cfg.ConsultationsHandler.RegisterRoutes(api)
		}
		if cfg.AssistantHandler != nil {
			cfg.AssistantHandler.RegisterRoutes(api)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	caller, ok := httpmiddleware.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"id": caller.ID, "role": caller.Role})
}
