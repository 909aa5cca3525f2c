package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/setlist/internal/models"
)

// AuthAPI covers account creation and login.
type AuthAPI struct{ c *Client }

func (c *Client) Auth() AuthAPI { return AuthAPI{c} }

// Register creates an account. It does not log in.
func (a AuthAPI) Register(ctx context.Context, req models.RegisterRequest) error {
	return a.c.Do(ctx, http.MethodPost, "/site/register", nil, req, nil)
}

// Login exchanges a username and password for a bearer token and its expiry.
func (a AuthAPI) Login(ctx context.Context, req models.LoginRequest) (*models.Credentials, error) {
	var creds models.Credentials
	if err := a.c.Do(ctx, http.MethodPost, "/site/login", nil, req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}
