package server

// Route path constants
const (
	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Portal Routes
	RouteDashboard     = "/"
	RouteAdminResource = "/admin/{resource}"

	// Operational Routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// AdminResources are the backend collections the portal has views for.
var AdminResources = []string{
	"programs",
	"courses",
	"students",
	"staff",
	"payments",
	"announcements",
	"notifications",
	"roles",
}

func isAdminResource(name string) bool {
	for _, r := range AdminResources {
		if r == name {
			return true
		}
	}
	return false
}
