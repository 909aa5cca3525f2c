package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/shared"
)

func configPath() string {
	if p := os.Getenv("SETLIST_CONFIG"); p != "" {
		return p
	}
	return "config.toml"
}

func main() {
	logger := shared.NewLogger(nil)

	path := configPath()
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if loaded, err := shared.LoadConfig(path); err == nil {
			config = loaded
		} else if errors.Is(err, shared.ErrInvalidConfig) {
			logger.Fatal("refusing to start with an invalid config", "path", path, "error", err)
		} else {
			logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		}
	}
	if config.Logging.File != "" {
		if fl, err := shared.NewFileLogger(config.Logging.File); err == nil {
			logger = fl
		} else {
			logger.Warn("failed to open log file, logging to stderr", "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Logging.Level))

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		logger.Warn("database unavailable, the session will not outlive this process", "error", err)
	} else {
		defer db.Close()
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: path,
		DB:         db,
		Logger:     logger,
	})

	if err := runner.app().Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, services.ErrUnauthorized), errors.Is(err, shared.ErrNotAuthenticated):
			fmt.Fprintln(os.Stderr, "Not signed in or session expired. Run 'setlist auth login'.")
			os.Exit(1)
		case errors.Is(err, shared.ErrTimeout):
			logger.Fatalf("the music service did not answer in time (api.timeout = %v): %v", config.API.Timeout, err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
