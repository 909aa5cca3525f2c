package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/desertthunder/setlist/internal/shared"
)

// ErrUnauthorized is returned after the server rejected the credential with a 401.
var ErrUnauthorized = fmt.Errorf("%w: unauthorized", shared.ErrNotAuthenticated)

// TransportError means no response was received.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches [shared.ErrTimeout] when the request ran out of time.
func (e *TransportError) Is(target error) bool {
	if target != shared.ErrTimeout {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// APIError is a failure reported by the server for a well-formed request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// DecodeError means a response arrived but its body could not be decoded.
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response (status %d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsTransport reports whether err means the request never got a response.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
