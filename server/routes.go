package server

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare(s.guard.RedirectAuthenticated)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// PORTAL
	s.RegisterRouteFunc("GET "+RouteDashboard+"{$}", ChainMiddleware(s.DashboardUIHandler(), s.HTMLMiddleWare(s.guard.Require)...))
	s.RegisterRouteFunc("GET "+RouteAdminResource, ChainMiddleware(s.AdminResourceUIHandler(), s.HTMLMiddleWare(s.guard.Require)...))

	// OPS
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	if s.metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	}
}
