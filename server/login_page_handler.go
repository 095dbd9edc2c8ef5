package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-dept-admin/authapi"
	"github.com/jrsteele09/go-dept-admin/guard"
	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/rs/zerolog"
)

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName string
	Next    string
	Error   string
	Email   string // Preserve email on error
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		data := LoginPageData{
			AppName: s.config.GetAppName(),
			Next:    guard.SafeNext(r.URL.Query().Get(guard.NextParam)),
			Email:   r.URL.Query().Get("email"),
		}
		renderHTML(w, r, loginTmpl, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form submission (POST /auth/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")

	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		password := r.FormValue("password")
		data := LoginPageData{
			AppName: s.config.GetAppName(),
			Next:    guard.SafeNext(r.FormValue(guard.NextParam)),
			Email:   email,
		}

		if email == "" || password == "" {
			data.Error = "Email and password are required"
			renderHTML(w, r, loginTmpl, http.StatusBadRequest, data)
			return
		}

		if err := s.store.SetPendingEmail(r.Context(), email); err != nil {
			logger.Warn().Err(err).Msg("Failed to record pending login email")
		}

		sess, err := s.auth.Login(r.Context(), email, password)
		if err != nil {
			status, message := loginFailure(err)
			if s.metrics != nil {
				s.metrics.LoginFailed(string(loginErrorKind(err)))
			}
			logger.Info().Err(err).Msg("Login failed")
			data.Error = message
			renderHTML(w, r, loginTmpl, status, data)
			return
		}

		if err := s.store.Login(r.Context(), sess); err != nil {
			if !apperrors.Is(err, apperrors.ErrSessionNotPersisted) {
				logger.Error().Err(err).Msg("Backend returned an unusable session")
				data.Error = (&authapi.LoginError{Kind: authapi.KindUnexpected}).UserMessage()
				renderHTML(w, r, loginTmpl, http.StatusBadGateway, data)
				return
			}
			logger.Warn().Err(err).Msg("Session active for this process only")
		}

		next := data.Next
		if strings.HasPrefix(next, RouteLogin) || strings.HasPrefix(next, "/auth/") {
			next = RouteDashboard
		}
		http.Redirect(w, r, next, http.StatusSeeOther)
	}
}

// LogoutHandler ends the session (GET|POST /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.store.Logout(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("Logout could not clear stored session keys")
		}
		http.Redirect(w, r, RouteLogin, http.StatusSeeOther)
	}
}

func loginErrorKind(err error) authapi.Kind {
	var loginErr *authapi.LoginError
	if apperrors.As(err, &loginErr) {
		return loginErr.Kind
	}
	return authapi.KindUnexpected
}

func loginFailure(err error) (int, string) {
	var loginErr *authapi.LoginError
	if !apperrors.As(err, &loginErr) {
		loginErr = &authapi.LoginError{Kind: authapi.KindUnexpected}
	}
	switch loginErr.Kind {
	case authapi.KindInvalidCredentials:
		return http.StatusUnauthorized, loginErr.UserMessage()
	case authapi.KindBadRequest:
		return http.StatusBadRequest, loginErr.UserMessage()
	default:
		return http.StatusBadGateway, loginErr.UserMessage()
	}
}
