package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/advisim/advisim/internal/adapters/assistants"
	"github.com/advisim/advisim/internal/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "advisim",
		Short: "Advisim - AI sales training simulator",
		Long: `Advisim runs simulated advisor-client training sessions.
A tool-calling agent plays the client, another scores the transcript,
and a WebSocket gateway streams synthesized speech to the browser.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			reasoning = assistants.New(cfg.Assistants.URL, cfg.Assistants.APIKey)
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		agentsCmd(),
		speakCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("Assistants:")
			fmt.Printf("  URL:        %s\n", cfg.Assistants.URL)
			fmt.Printf("  Model:      %s\n", cfg.Assistants.Model)
			fmt.Printf("  Name Scope: %s\n", cfg.Assistants.NameScope)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.Assistants.APIKey))
			fmt.Println()

			fmt.Println("Speech:")
			fmt.Printf("  URL:     %s\n", cfg.Speech.URL)
			fmt.Printf("  Model:   %s\n", cfg.Speech.Model)
			fmt.Printf("  Voice:   %s\n", cfg.Speech.Voice)
			fmt.Printf("  Speed:   %.2f\n", cfg.Speech.Speed)
			fmt.Printf("  API Key: %s\n", maskSecret(cfg.Speech.APIKey))
			fmt.Printf("  Status:  %s\n", boolStatus(cfg.IsSpeechConfigured()))
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", boolStatus(cfg.Database.PostgresURL != ""))
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)
			fmt.Printf("  CORS: %v\n", cfg.Server.CORSOrigins)

			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("advisim %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
