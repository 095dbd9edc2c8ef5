package apiclient

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// SessionStore is the part of session.Store the transport relies on.
type SessionStore interface {
	oauth2.TokenSource
	LogoutToken(ctx context.Context, token string) (bool, error)
}

// Transport attaches the current session's bearer token to every request.
// A 401 answer ends the session that issued the request and fires
// OnUnauthorized. A 401 for a token already replaced by a newer login is ignored.
type Transport struct {
	Store          SessionStore
	Base           http.RoundTripper
	OnUnauthorized func(*http.Request)
	Logger         zerolog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var sent string
	token, err := t.Store.Token()
	switch {
	case err == nil:
		req = req.Clone(req.Context())
		token.SetAuthHeader(req)
		sent = token.AccessToken
	case !apperrors.Is(err, apperrors.ErrNoSession):
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		t.unauthorized(req, sent)
	}
	return resp, nil
}

func (t *Transport) unauthorized(req *http.Request, sent string) {
	if sent != "" {
		ended, err := t.Store.LogoutToken(context.WithoutCancel(req.Context()), sent)
		if err != nil {
			t.Logger.Error().Err(err).Msg("Failed to purge session after 401")
		}
		if !ended {
			t.Logger.Debug().Str("path", req.URL.Path).Msg("Ignoring 401 for a replaced session token")
			return
		}
		t.Logger.Warn().Str("path", req.URL.Path).Msg("Backend rejected the session token, logged out")
	}
	if t.OnUnauthorized != nil {
		t.OnUnauthorized(req)
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
