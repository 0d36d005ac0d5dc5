package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for Advisim
type Config struct {
	Assistants AssistantsConfig `json:"assistants"`
	Speech     SpeechConfig     `json:"speech"`
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
}

// AssistantsConfig holds the reasoning-service (assistants API) configuration
type AssistantsConfig struct {
	URL       string `json:"url"`
	APIKey    string `json:"api_key"`
	Model     string `json:"model"`
	NameScope string `json:"name_scope"` // prefix joined onto agent names, keeps deployments apart
}

// SpeechConfig holds text-to-speech configuration
type SpeechConfig struct {
	URL    string  `json:"url"`   // HTTP synthesis backend
	APIKey string  `json:"api_key"`
	Model  string  `json:"model"` // e.g. "tts-1"
	Voice  string  `json:"voice"` // e.g. "alloy"
	Speed  float64 `json:"speed"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Assistants: AssistantsConfig{
			URL:       "https://api.openai.com/v1",
			APIKey:    "",
			Model:     "gpt-4o",
			NameScope: "advisim",
		},
		Speech: SpeechConfig{
			URL:    "https://api.openai.com/v1",
			APIKey: "",
			Model:  "tts-1",
			Voice:  "alloy",
			Speed:  1.0,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("ADVISIM_ASSISTANTS_URL", &cfg.Assistants.URL)
	envString("ADVISIM_ASSISTANTS_API_KEY", &cfg.Assistants.APIKey)
	envString("ADVISIM_ASSISTANTS_MODEL", &cfg.Assistants.Model)
	envString("ADVISIM_ASSISTANTS_NAME_SCOPE", &cfg.Assistants.NameScope)

	envString("ADVISIM_SPEECH_URL", &cfg.Speech.URL)
	envString("ADVISIM_SPEECH_API_KEY", &cfg.Speech.APIKey)
	envString("ADVISIM_SPEECH_MODEL", &cfg.Speech.Model)
	envString("ADVISIM_SPEECH_VOICE", &cfg.Speech.Voice)
	envFloat("ADVISIM_SPEECH_SPEED", &cfg.Speech.Speed)

	envString("ADVISIM_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("ADVISIM_SERVER_HOST", &cfg.Server.Host)
	envInt("ADVISIM_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("ADVISIM_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsSpeechConfigured returns true if the TTS backend is configured
func (c *Config) IsSpeechConfigured() bool {
	return c.Speech.URL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.Assistants.URL == "" {
		errs = append(errs, "assistants URL is required")
	} else if !isValidURL(c.Assistants.URL) {
		errs = append(errs, "assistants URL must be a valid URL")
	}
	if c.Assistants.Model == "" {
		errs = append(errs, "assistants model is required")
	}

	if c.Speech.URL != "" && !isValidURL(c.Speech.URL) {
		errs = append(errs, "speech URL must be a valid URL")
	}
	if c.Speech.Speed < 0.25 || c.Speech.Speed > 4.0 {
		errs = append(errs, "speech speed must be between 0.25 and 4.0")
	}

	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("ADVISIM_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "advisim")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".advisim", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
