package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 4 << 10

// StatusError is a non-2xx backend answer other than 401.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *StatusError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.Status >= 500:
		return apperrors.ErrServer
	default:
		return apperrors.ErrUnexpected
	}
}

// Client calls the authenticated backend API. Requests go through a Transport
// bound to the session store; a 401 yields ErrUnauthorized after the session is purged.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type clientSettings struct {
	base           http.RoundTripper
	timeout        time.Duration
	onUnauthorized func(*http.Request)
	logger         zerolog.Logger
}

type ClientOption func(*clientSettings)

// WithBaseTransport sets the RoundTripper under the bearer transport.
func WithBaseTransport(base http.RoundTripper) ClientOption {
	return func(s *clientSettings) {
		s.base = base
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(s *clientSettings) {
		s.timeout = timeout
	}
}

// WithOnUnauthorized registers the navigation hook run after a 401 ended the session.
func WithOnUnauthorized(hook func(*http.Request)) ClientOption {
	return func(s *clientSettings) {
		s.onUnauthorized = hook
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(s *clientSettings) {
		s.logger = logger
	}
}

func NewClient(baseURL string, store SessionStore, options ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[apiclient.NewClient] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[apiclient.NewClient] store is required")
	}

	settings := clientSettings{
		timeout: 10 * time.Second,
		logger:  log.Logger.With().Str("component", "apiclient").Logger(),
	}
	for _, opt := range options {
		opt(&settings)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: settings.timeout,
			Transport: &Transport{
				Store:          store,
				Base:           settings.base,
				OnUnauthorized: settings.onUnauthorized,
				Logger:         settings.logger,
			},
		},
		logger: settings.logger,
	}, nil
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", method, path, apperrors.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, apperrors.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, path)
	}
	return nil
}
