// ABOUTME: Entry point for ponder
// ABOUTME: Wires config, store, model client and chat service into the Matrix bridge

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/ponder/internal/chat"
	"github.com/2389/ponder/internal/config"
	"github.com/2389/ponder/internal/ingest"
	"github.com/2389/ponder/internal/mode"
	"github.com/2389/ponder/internal/model"
	"github.com/2389/ponder/internal/research"
	"github.com/2389/ponder/internal/scaling"
	"github.com/2389/ponder/internal/session"
	"github.com/2389/ponder/internal/store"
)

const banner = `
                      _
 _ __   ___  _ __   __| | ___ _ __
| '_ \ / _ \| '_ \ / _' |/ _ \ '__|
| |_) | (_) | | | | (_| |  __/ |
| .__/ \___/|_| |_|\__,_|\___|_|
|_|
`

// getConfigPath returns the path to the ponder config file.
// Priority: PONDER_CONFIG env var > XDG_CONFIG_HOME/ponder/ponder.toml > ~/.config/ponder/ponder.toml
func getConfigPath() string {
	if envPath := os.Getenv("PONDER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "ponder.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "ponder", "ponder.toml")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging.Level)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Homeserver: %s\n", cfg.Matrix.Homeserver)
	green.Print("    ▶ ")
	fmt.Printf("User:       %s\n", cfg.Matrix.UserID)
	green.Print("    ▶ ")
	fmt.Printf("Model:      %s\n", cfg.Anthropic.Model)
	green.Print("    ▶ ")
	fmt.Printf("Database:   %s\n", cfg.Database.Path)
	if cfg.Research.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Research:   %s\n", cfg.Research.URL)
	}
	fmt.Println()

	// Graceful shutdown context - all operations respect it
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer db.Close()

	sessions := session.NewManager(db,
		cfg.Session.MaxContextTokens,
		session.Mode(cfg.Scaling.DefaultMode),
		cfg.Scaling.DefaultEffort,
		logger,
	)
	modes := mode.NewController(sessions, cfg.Scaling.MinEffort, cfg.Scaling.MaxEffort, logger)

	gate := model.NewGate(
		cfg.Limits.RequestsPerMinute,
		cfg.Limits.Burst,
		cfg.Limits.MaxConcurrent,
		cfg.Limits.AcquireTimeout,
	)
	client := model.NewAnthropic(model.AnthropicConfig{
		APIKey:       cfg.Anthropic.APIKey,
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Anthropic.MaxTokens,
		Temperature:  cfg.Anthropic.Temperature,
		SystemPrompt: cfg.Anthropic.SystemPrompt,
	}, gate, logger)

	var res research.Client
	if cfg.Research.Enabled {
		res = research.NewHTTPClient(cfg.Research.URL, logger)
	}

	svc := chat.New(sessions, modes,
		ingest.NewIngestor(logger),
		client,
		scaling.NewScheduler(client, logger),
		res,
		logger,
	)

	bridge, err := NewBridge(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	logger.Info("starting ponder")
	return bridge.Run(ctx)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
