package guard

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLoginPath = "/login"
	DefaultNext      = "/"
	NextParam        = "next"
)

// SessionReader is the read side of session.Store.
type SessionReader interface {
	Initialized() bool
	Current() *session.Session
}

type contextKey string

const sessionContextKey contextKey = "session"

// Guard protects routes that need an authenticated session.
type Guard struct {
	store     SessionReader
	loginPath string
	loading   http.Handler
	logger    zerolog.Logger
}

type Option func(*Guard)

func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithLoadingHandler replaces the response served while the store is still initializing.
func WithLoadingHandler(h http.Handler) Option {
	return func(g *Guard) {
		g.loading = h
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func New(store SessionReader, options ...Option) (*Guard, error) {
	if store == nil {
		return nil, errors.New("[guard.New] store is required")
	}
	g := &Guard{
		store:     store,
		loginPath: DefaultLoginPath,
		loading:   http.HandlerFunc(defaultLoading),
		logger:    log.Logger.With().Str("component", "guard").Logger(),
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Require serves next only with a session. While the store is initializing it
// answers with the loading state; without a session it redirects to login,
// carrying the requested location in the next parameter.
func (g *Guard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.store.Initialized() {
			g.loading.ServeHTTP(w, r)
			return
		}

		current := g.store.Current()
		if current == nil {
			g.logger.Debug().Str("path", r.URL.Path).Msg("No session, redirecting to login")
			http.Redirect(w, r, LoginURL(g.loginPath, r.URL.RequestURI()), http.StatusSeeOther)
			return
		}

		next(w, r.WithContext(WithSession(r.Context(), current)))
	}
}

// RedirectAuthenticated sends users who already have a session to their next location.
func (g *Guard) RedirectAuthenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.store.Initialized() && g.store.Current() != nil {
			http.Redirect(w, r, SafeNext(r.URL.Query().Get(NextParam)), http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext returns the session injected by Require.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*session.Session)
	return s, ok && s != nil
}

// LoginURL is the login route carrying next when it is a safe local location.
func LoginURL(loginPath, next string) string {
	next = SafeNext(next)
	if next == DefaultNext {
		return loginPath
	}
	return loginPath + "?" + url.Values{NextParam: {next}}.Encode()
}

// SafeNext accepts only same-origin absolute paths and falls back to DefaultNext.
func SafeNext(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n") {
		return DefaultNext
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return DefaultNext
	}
	return u.RequestURI()
}

func defaultLoading(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`<!doctype html><html><head><meta http-equiv="refresh" content="1"><title>Loading</title></head><body><p>Loading...</p></body></html>`))
}
