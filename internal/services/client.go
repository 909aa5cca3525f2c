package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/setlist/internal/models"
)

// Client sends requests to the remote music API.
type Client struct {
	baseURL string
	HTTP    *http.Client
	Prepare PrepareChain
	Inspect InspectChain
	logger  *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPrepare appends request middleware.
func WithPrepare(mw ...RequestMiddleware) Option {
	return func(c *Client) { c.Prepare = append(c.Prepare, mw...) }
}

// WithInspect appends response middleware.
func WithInspect(mw ...ResponseMiddleware) Option {
	return func(c *Client) { c.Inspect = append(c.Inspect, mw...) }
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTP == nil {
		c.HTTP = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// Use appends request middleware after construction.
func (c *Client) Use(mw ...RequestMiddleware) { c.Prepare = append(c.Prepare, mw...) }

// Observe appends response middleware after construction.
func (c *Client) Observe(mw ...ResponseMiddleware) { c.Inspect = append(c.Inspect, mw...) }

// Do sends method path with an optional query and JSON body, decoding the envelope's result into out.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

// Upload posts a multipart form with one file part under field.
func (c *Client) Upload(ctx context.Context, path, field, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	method, path := req.Method, req.URL.Path

	if err := c.Prepare.Apply(req); err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("response", "method", method, "path", path, "status", resp.StatusCode)

	if err := c.Inspect.Apply(resp); err != nil {
		io.Copy(io.Discard, resp.Body)
		return err
	}

	var env models.Envelope[json.RawMessage]
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		if decodeErr == nil && env.Message != "" {
			apiErr.Message = env.Message
		}
		return apiErr
	}

	if decodeErr != nil {
		if errors.Is(decodeErr, io.EOF) {
			return nil
		}
		return &DecodeError{Status: resp.StatusCode, Err: decodeErr}
	}

	if !env.OK {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &DecodeError{Status: resp.StatusCode, Err: err}
	}
	return nil
}
