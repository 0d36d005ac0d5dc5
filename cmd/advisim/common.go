package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/advisim/advisim/internal/adapters/assistants"
	"github.com/advisim/advisim/internal/adapters/postgres"
	"github.com/advisim/advisim/internal/config"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared across commands, populated in PersistentPreRunE.
var (
	cfg       *config.Config
	reasoning *assistants.Service
)

// initDB initializes a database connection pool for CLI commands.
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("PostgreSQL connection required. Set ADVISIM_POSTGRES_URL")
	}
	return postgres.Connect(ctx, cfg.Database.PostgresURL)
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus returns a status string for a boolean
func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
