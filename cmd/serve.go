package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setlist/internal/server"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/web"
)

// Serve runs the local web front until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		cfg.Port = port
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", shared.ErrInvalidFlag, cfg.Port)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.cache.StartJanitor(ctx, r.config.Cache.JanitorInterval)

	app := web.New(web.Deps{
		Session:    r.store,
		Reader:     r.reader,
		Mutations:  r.mutations,
		Logger:     shared.WithLogger(r.logger, "component", "web"),
		Production: cfg.Production,
	})

	r.relay.Set(func(path string) {
		r.logger.Warn("session rejected by the server, the next request will be sent to login", "route", path)
	})
	defer r.relay.Set(nil)

	r.writePlain("Serving on http://%s\n", cfg.Addr())
	return server.Serve(ctx, cfg.Addr(), app.Handler(), r.logger)
}
