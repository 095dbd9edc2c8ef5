package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	LoginPath          = "/auth/login"
	maxResponseBytes   = 1 << 20
	defaultHTTPTimeout = 10 * time.Second
)

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the backend's successful login body.
type LoginResponse struct {
	Token        string  `json:"token"`
	Role         string  `json:"role"`
	TenantID     string  `json:"tenantId"`
	UniversityID string  `json:"universityId"`
	FacultyID    *string `json:"facultyId,omitempty"`
	DepartmentID *string `json:"departmentId,omitempty"`
	Email        string  `json:"email,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client exchanges credentials for a session at the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("[authapi.NewClient] baseURL is required")
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     log.Logger.With().Str("component", "authapi").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Login posts the credentials and returns the session they grant.
// Every failure is a *LoginError; a 2xx body without the required fields is KindUnexpected.
func (c *Client) Login(ctx context.Context, email, password string) (session.Session, error) {
	body, err := json.Marshal(Credentials{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		return session.Session{}, &LoginError{Kind: KindUnexpected, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return session.Session{}, &LoginError{Kind: KindUnexpected, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("login request failed")
		return session.Session{}, &LoginError{Kind: KindNetworkError, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return session.Session{}, &LoginError{Kind: KindNetworkError, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		loginErr := &LoginError{Kind: KindForStatus(resp.StatusCode), Status: resp.StatusCode, Detail: errorDetail(raw)}
		c.logger.Info().Int("status", resp.StatusCode).Str("kind", string(loginErr.Kind)).Msg("login rejected")
		return session.Session{}, loginErr
	}

	var lr LoginResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return session.Session{}, &LoginError{Kind: KindUnexpected, Status: resp.StatusCode, Err: errors.Wrap(err, "decode login response")}
	}

	s := session.Session{
		Token:        lr.Token,
		Role:         session.Role(lr.Role),
		TenantID:     lr.TenantID,
		UniversityID: lr.UniversityID,
		FacultyID:    lr.FacultyID,
		DepartmentID: lr.DepartmentID,
		Email:        lr.Email,
	}
	if err := s.Validate(); err != nil {
		return session.Session{}, &LoginError{Kind: KindUnexpected, Status: resp.StatusCode, Err: err}
	}
	return s, nil
}

func errorDetail(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return ""
	}
	if er.Message != "" {
		return er.Message
	}
	return er.Error
}
