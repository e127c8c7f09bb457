package server

func (s *Server) initRoutes() {
	// Public auth endpoints
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthAutoLogin, ChainMiddleware(s.AutoLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteVerifyRecoveryCode, ChainMiddleware(s.VerifyRecoveryCodeHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.APIMiddleware()...))

	// Logout is callable with or without a bearer token; the remember cookie
	// is what actually gets revoked.
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Bearer-protected endpoints
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteEquipments, ChainMiddleware(s.EquipmentListHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteEquipments, ChainMiddleware(s.EquipmentCreateHandler(), s.ProtectedAPIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteEquipmentByID, ChainMiddleware(s.EquipmentGetHandler(), s.ProtectedAPIMiddleware()...))
}
