package server

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-dept-admin/guard"
	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/rs/zerolog"
)

// ResourcePageData contains data for rendering one backend collection
type ResourcePageData struct {
	AppName   string
	Username  string
	Resource  string
	Resources []string
	Columns   []string
	Rows      [][]string
	Error     string
}

// AdminResourceUIHandler renders GET /admin/{resource} from the backend's GET /api/{resource}
func (s *Server) AdminResourceUIHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("resource.html")

	return func(w http.ResponseWriter, r *http.Request) {
		resource := r.PathValue("resource")
		if !isAdminResource(resource) {
			http.NotFound(w, r)
			return
		}
		current, _ := guard.SessionFromContext(r.Context())

		data := ResourcePageData{
			AppName:   s.config.GetAppName(),
			Username:  current.Username(),
			Resource:  resource,
			Resources: AdminResources,
		}

		var payload any
		err := s.api.GetJSON(r.Context(), "/api/"+resource, &payload)
		switch {
		case apperrors.Is(err, apperrors.ErrUnauthorized):
			// The API client has already purged the session.
			http.Redirect(w, r, guard.LoginURL(RouteLogin, r.URL.RequestURI()), http.StatusSeeOther)
			return
		case apperrors.Is(err, apperrors.ErrNotFound):
			data.Error = "This view is not available for your account."
			renderHTML(w, r, tmpl, http.StatusNotFound, data)
			return
		case err != nil:
			zerolog.Ctx(r.Context()).Error().Err(err).Str("resource", resource).Msg("Failed to load resource")
			data.Error = "The backend could not be reached. Please try again."
			renderHTML(w, r, tmpl, http.StatusBadGateway, data)
			return
		}

		data.Columns, data.Rows = tabulate(payload)
		renderHTML(w, r, tmpl, http.StatusOK, data)
	}
}

// tabulate flattens a JSON array of objects into sorted columns and string cells.
func tabulate(payload any) ([]string, [][]string) {
	items, ok := payload.([]any)
	if !ok {
		if payload == nil {
			return nil, nil
		}
		items = []any{payload}
	}

	seen := map[string]struct{}{}
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			for key := range obj {
				seen[key] = struct{}{}
			}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)
	if len(columns) == 0 {
		columns = []string{"value"}
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			rows = append(rows, []string{cell(item)})
			continue
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := obj[col]; ok {
				row[i] = cell(v)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows
}

func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
