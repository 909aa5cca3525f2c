package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/shared"
)

// guard applies the route guard to a CLI command that reads or writes path.
func (r *Runner) guard(path string) error {
	if d := routes.Decide(path, r.store.HasToken()); d.Action == routes.RedirectLogin {
		return fmt.Errorf("%w: run 'setlist auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// Login signs in and persists the returned access token.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	req := models.LoginRequest{
		Username: cmd.String("username"),
		Password: cmd.String("password"),
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	if !r.store.Login(ctx, req) {
		return shared.ErrAuthFailed
	}

	r.writePlain("✓ Logged in as %s\n", req.Username)
	r.writePlain("Session expires %s\n", r.store.Expiry().Local().Format(time.RFC1123))
	return nil
}

// Register creates an account. It does not sign in.
func (r *Runner) Register(ctx context.Context, cmd *cli.Command) error {
	confirm := cmd.String("confirm-password")
	if confirm == "" {
		confirm = cmd.String("password")
	}

	req := models.RegisterRequest{
		FirstName:       cmd.String("first-name"),
		LastName:        cmd.String("last-name"),
		Username:        cmd.String("username"),
		Password:        cmd.String("password"),
		ConfirmPassword: confirm,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}

	if !r.store.Register(ctx, req) {
		return fmt.Errorf("%w: registration rejected", shared.ErrAuthFailed)
	}

	r.writePlain("✓ Account %s created\n", req.Username)
	r.writePlain("Run 'setlist auth login -u %s' to sign in\n", req.Username)
	return nil
}

// Logout discards the stored session.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	r.store.Logout()
	r.writePlain("✓ Logged out\n")
	return nil
}

type sessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	Valid         bool       `json:"valid"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// Status reports whether a token is stored and whether it is still within its expiry.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	status := sessionStatus{
		Authenticated: r.store.HasToken(),
		Valid:         r.store.Token() != nil,
	}
	if exp := r.store.Expiry(); !exp.IsZero() {
		status.ExpiresAt = &exp
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, false)
	}

	switch {
	case !status.Authenticated:
		r.writePlain("Not logged in\n")
	case !status.Valid:
		r.writePlain("Session expired at %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	case status.ExpiresAt != nil:
		r.writePlain("Logged in, session expires %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	default:
		r.writePlain("Logged in\n")
	}
	return nil
}
