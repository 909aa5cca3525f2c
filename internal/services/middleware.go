package services

import (
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/setlist/internal/routes"
	"github.com/desertthunder/setlist/internal/shared"
)

// RequestMiddleware prepares an outgoing request.
type RequestMiddleware func(req *http.Request) error

// ResponseMiddleware inspects a response before it is decoded. A non-nil error aborts decoding.
type ResponseMiddleware func(resp *http.Response) error

// PrepareChain runs request middleware in order, stopping at the first error.
type PrepareChain []RequestMiddleware

func (c PrepareChain) Apply(req *http.Request) error {
	for _, mw := range c {
		if mw == nil {
			continue
		}
		if err := mw(req); err != nil {
			return err
		}
	}
	return nil
}

// InspectChain runs response middleware in order, stopping at the first error.
type InspectChain []ResponseMiddleware

func (c InspectChain) Apply(resp *http.Response) error {
	for _, mw := range c {
		if mw == nil {
			continue
		}
		if err := mw(resp); err != nil {
			return err
		}
	}
	return nil
}

// BearerSource yields the current credential, or nil when there is none.
type BearerSource interface {
	Token() *oauth2.Token
}

// CredentialStore is a [BearerSource] that can discard its credential.
type CredentialStore interface {
	BearerSource
	Clear() error
}

// Navigator moves the active front-end to a route path.
type Navigator interface {
	Navigate(path string)
}

// WithHeader sets a fixed header.
func WithHeader(key, value string) RequestMiddleware {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) RequestMiddleware {
	return WithHeader("User-Agent", ua)
}

// WithRequestID tags each request with a fresh X-Request-ID unless one is already set.
func WithRequestID() RequestMiddleware {
	return func(req *http.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", shared.GenerateID())
		}
		return nil
	}
}

// WithRateLimit blocks until limiter admits the request or its context ends.
func WithRateLimit(limiter *rate.Limiter) RequestMiddleware {
	return func(req *http.Request) error {
		if limiter == nil {
			return nil
		}
		return limiter.Wait(req.Context())
	}
}

// WithBearer attaches "Authorization: Bearer <token>" when src holds a token.
func WithBearer(src BearerSource) RequestMiddleware {
	return func(req *http.Request) error {
		if tok := src.Token(); tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(req)
		}
		return nil
	}
}

// WithUnauthorizedRedirect clears the credential and navigates to the login view on a 401.
func WithUnauthorizedRedirect(store CredentialStore, nav Navigator, logger *log.Logger) ResponseMiddleware {
	return func(resp *http.Response) error {
		if resp.StatusCode != http.StatusUnauthorized {
			return nil
		}

		if err := store.Clear(); err != nil && logger != nil {
			logger.Warn("failed to clear credential", "error", err)
		}
		if logger != nil {
			logger.Info("credential rejected", "path", resp.Request.URL.Path)
		}
		if nav != nil {
			nav.Navigate(routes.LoginPath)
		}
		return ErrUnauthorized
	}
}
