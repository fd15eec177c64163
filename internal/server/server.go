package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/tracker"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	tracker   *tracker.Tracker
	lifecycle *lifecycle.Hub
	log       *slog.Logger
	apiKey    string
	whois     WhoIser
	router    chi.Router
}

// New creates a new Server with all routes configured. An empty apiKey
// leaves the API open, for use behind tsnet.
func New(t *tracker.Tracker, hub *lifecycle.Hub, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		tracker:   t,
		lifecycle: hub,
		log:       log,
		apiKey:    apiKey,
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches request identity to tailnet peer lookups. Call it
// before serving.
func (s *Server) SetTailscale(w WhoIser) {
	s.whois = w
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Get("/me", s.handleMe)

		r.Route("/workout", func(r chi.Router) {
			r.Get("/", s.handleGetWorkout)
			r.Post("/", s.handleStartWorkout)
			r.Patch("/", s.handleUpdateWorkout)
			r.Delete("/", s.handleEndWorkout)
			r.Post("/minimize", s.handleMinimize)
			r.Post("/maximize", s.handleMaximize)
			r.Post("/exercises/{exercise}/sets/{set}/complete", s.handleCompleteSet)
			r.Post("/exercises/{exercise}/sets/{set}/uncomplete", s.handleUncompleteSet)
		})

		r.Route("/timer", func(r chi.Router) {
			r.Get("/", s.handleGetTimer)
			r.Post("/start", s.handleStartTimer)
			r.Post("/adjust", s.handleAdjustTimer)
			r.Post("/skip", s.handleSkipTimer)
			r.Post("/reset", s.handleResetTimer)
			r.Post("/picker", s.handleOpenPicker)

			r.Get("/entry", s.handleGetEntry)
			r.Post("/entry/digit", s.handlePushDigit)
			r.Post("/entry/backspace", s.handleBackspace)
			r.Post("/entry/clear", s.handleClearEntry)
			r.Post("/entry/start", s.handleStartFromEntry)
		})

		r.Post("/lifecycle", s.handleLifecycle)
	})
}

// identity picks the tailnet lookup when tsnet is in use.
func (s *Server) identity(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.log)(next).ServeHTTP(w, r)
	})
}
