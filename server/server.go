package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-dept-admin/guard"
	"github.com/jrsteele09/go-dept-admin/internal/config"
	"github.com/jrsteele09/go-dept-admin/internal/metrics"
	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoginClient exchanges credentials for a session (authapi.Client).
type LoginClient interface {
	Login(ctx context.Context, email, password string) (session.Session, error)
}

// ResourceClient reads the authenticated backend API (apiclient.Client).
type ResourceClient interface {
	GetJSON(ctx context.Context, path string, out any) error
}

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	store   *session.Store
	auth    LoginClient
	api     ResourceClient
	guard   *guard.Guard
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*Server)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, store *session.Store, auth LoginClient, api ResourceClient, options ...Option) (*Server, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("[server.New] config is required")
	case store == nil:
		return nil, errors.New("[server.New] session store is required")
	case auth == nil:
		return nil, errors.New("[server.New] login client is required")
	case api == nil:
		return nil, errors.New("[server.New] resource client is required")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		store:  store,
		auth:   auth,
		api:    api,
		logger: log.Logger.With().Str("component", "server").Logger(),
	}
	for _, opt := range options {
		opt(s)
	}

	g, err := guard.New(store, guard.WithLoginPath(RouteLogin), guard.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("[server.New] guard.New: %w", err)
	}
	s.guard = g

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

// Start resolves the persisted session in the background. Guarded routes serve
// the loading state until it completes.
func (s *Server) Start(ctx context.Context) {
	go func() {
		current := s.store.Initialize(ctx)
		if current == nil {
			s.logger.Info().Msg("No stored session, login required")
			return
		}
		s.logger.Info().Str("user", current.Username()).Str("role", string(current.Role)).Msg("Restored stored session")
	}()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logger.Debug().Msgf("[%s] %s", colouredMethod(method), path)
	}
}
