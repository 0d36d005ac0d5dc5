package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/advisim/advisim/internal/adapters/http/handlers"
	"github.com/advisim/advisim/internal/adapters/http/middleware"
	"github.com/advisim/advisim/internal/agents"
	"github.com/advisim/advisim/internal/config"
)

const readTimeout = 30 * time.Second

// Deps collects everything the server routes to.
type Deps struct {
	DBPing     func(context.Context) error
	Chat       handlers.Chatter
	Contexts   *agents.ContextStore
	Simulation handlers.SimulationAPI
	SpeechWS   http.Handler
}

type Server struct {
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logger)
	router.Use(middleware.Metrics)
	router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthH := handlers.NewHealthHandler(deps.DBPing)
	router.Get("/health", healthH.Readiness)
	router.Get("/health/live", healthH.Liveness)
	router.Handle("/metrics", promhttp.Handler())

	if deps.SpeechWS != nil {
		router.Get("/api/v1/speech/ws", deps.SpeechWS.ServeHTTP)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth)

		if deps.Chat != nil {
			chatH := handlers.NewChatHandler(deps.Chat, deps.Contexts)
			r.Post("/chat", chatH.Create)
			r.Post("/chat/stream", chatH.Stream)
		}

		if deps.Simulation != nil {
			simH := handlers.NewSimulationHandler(deps.Simulation)
			r.Post("/simulation/start", simH.Start)
			r.Post("/simulation/message", simH.Message)
			r.Post("/simulation/end", simH.End)
			r.Post("/simulation/guidance", simH.Guidance)
			r.Get("/simulation/sessions", simH.List)
		}
	})

	return &Server{cfg: cfg, router: router}
}

// Router exposes the mux, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: readTimeout,
		// Streaming responses (SSE, WebSocket) outlive any fixed write deadline.
		WriteTimeout: 0,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
