package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	server "github.com/advisim/advisim/internal/adapters/http"
	"github.com/advisim/advisim/internal/adapters/id"
	"github.com/advisim/advisim/internal/adapters/postgres"
	"github.com/advisim/advisim/internal/adapters/tracing"
	"github.com/advisim/advisim/internal/agents"
	"github.com/advisim/advisim/internal/ports"
	"github.com/advisim/advisim/internal/services"
	"github.com/advisim/advisim/internal/speech/gateway"
	"github.com/advisim/advisim/internal/speech/synth"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Advisim HTTP API server.

The server exposes the simulation lifecycle (start, message, end,
guidance), a direct chat endpoint with SSE streaming, and a WebSocket
speech gateway.

Required configuration:
  - Assistants endpoint (ADVISIM_ASSISTANTS_URL, ADVISIM_ASSISTANTS_API_KEY)

Optional:
  - PostgreSQL (ADVISIM_POSTGRES_URL) for rubrics, parameters and session history
  - Speech backend (ADVISIM_SPEECH_URL) for the audio gateway`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	log.Println("Starting Advisim API server...")
	log.Printf("  HTTP:       http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  Assistants: %s", cfg.Assistants.URL)
	if cfg.IsSpeechConfigured() {
		log.Printf("  Speech:     %s", cfg.Speech.URL)
	}
	log.Println()

	shutdown, err := tracing.InitTracer("advisim-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
	}

	// Postgres is optional; without it the agents run on built-in
	// rubrics and parameter defaults and sessions are not persisted.
	var (
		dbPing       func(context.Context) error
		rubrics      ports.RubricRepository
		competencies ports.CompetencyRepository
		params       ports.ParameterRepository
		sessions     ports.SessionRepository
	)
	if cfg.Database.PostgresURL != "" {
		log.Println("Connecting to PostgreSQL...")
		pool, err := postgres.Connect(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		store := postgres.New(pool)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}

		dbPing = pool.Ping
		rubrics = postgres.NewRubricRepository(store)
		competencies = postgres.NewCompetencyRepository(store)
		params = store
		sessions = postgres.NewSessionRepository(store)
		log.Println("Database connection established")
	} else {
		log.Println("PostgreSQL not configured - using built-in defaults, sessions not persisted")
	}

	model := cfg.Assistants.Model
	scope := cfg.Assistants.NameScope
	contexts := agents.NewContextStore()

	clientAgent := agents.NewSimulationClientAgent(reasoning, model, scope, contexts)
	profileAgent := agents.NewProfileGenerationAgent(reasoning, model, scope, params)
	evalAgent := agents.NewEvaluationAgent(reasoning, model, scope, rubrics, competencies)
	guidanceAgent := agents.NewExpertGuidanceAgent(reasoning, model, scope, contexts)

	simulation := services.NewSimulationService(
		id.New(), sessions, competencies, contexts,
		profileAgent, clientAgent, evalAgent, guidanceAgent,
	)

	var speechWS http.Handler
	if cfg.IsSpeechConfigured() {
		synthesizer := synth.New(cfg.Speech.URL, cfg.Speech.APIKey, cfg.Speech.Model, cfg.Speech.Voice)
		speechWS = gateway.New(synthesizer)
		log.Println("Speech gateway initialized")
	} else {
		log.Println("Speech not configured - audio gateway unavailable")
	}

	srv := server.NewServer(cfg, server.Deps{
		DBPing:     dbPing,
		Chat:       guidanceAgent,
		Contexts:   contexts,
		Simulation: simulation,
		SpeechWS:   speechWS,
	})

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErrors <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Println("Server stopped")
		return nil
	}
}
