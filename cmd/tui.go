package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/ui"
)

// TUI launches the interactive terminal UI at the start route.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Logs go to a file so they do not tear the rendered frames.
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	err = ui.Run(ctx, ui.Deps{
		Session:   r.store,
		Reader:    r.reader,
		Mutations: r.mutations,
		Logger:    fileLogger,
	}, r.relay, cmd.String("start"))
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
