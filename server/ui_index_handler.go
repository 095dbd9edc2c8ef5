package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/jrsteele09/go-dept-admin/guard"
	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/jrsteele09/go-dept-admin/session"
)

var templateFuncs = template.FuncMap{
	"value": utils.Value[string],
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC1123)
	},
}

// DashboardData contains data for rendering the dashboard
type DashboardData struct {
	AppName   string
	Session   *session.Session
	Username  string
	ExpiresAt time.Time
	Resources []string
}

// DashboardUIHandler renders the guarded landing page (GET /)
func (s *Server) DashboardUIHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("dashboard.html")

	return func(w http.ResponseWriter, r *http.Request) {
		current, _ := guard.SessionFromContext(r.Context())

		data := DashboardData{
			AppName:   s.config.GetAppName(),
			Session:   current,
			Username:  current.Username(),
			Resources: AdminResources,
		}
		if claims, err := current.Claims(); err == nil {
			data.ExpiresAt = claims.ExpiresAt
		}
		renderHTML(w, r, tmpl, http.StatusOK, data)
	}
}

// HealthHandler reports liveness and whether the stored session has been resolved.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"initialized":   s.store.Initialized(),
			"authenticated": s.store.Current() != nil,
		})
	}
}
