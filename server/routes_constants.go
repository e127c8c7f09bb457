package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthLogin     = "/auth/login"
	RouteAuthAutoLogin = "/auth/auto-login"
	RouteAuthLogout    = "/auth/logout"
	RouteAuthMe        = "/auth/me"
	RouteAuthRegister  = "/auth/register"

	// Auth Routes - Password Recovery
	RouteForgotPassword     = "/auth/forgot-password"
	RouteVerifyRecoveryCode = "/auth/verify-recovery-code"
	RouteResetPassword      = "/auth/reset-password"

	// Protected resource routes
	RouteEquipments    = "/equipments"
	RouteEquipmentByID = "/equipments/{id}"
)

// Cookie names shared with the session client
const (
	// RememberCookie carries the opaque remember token. HTTP-only: scripts
	// and the session client never see its value.
	RememberCookie = "remember_token"
	// RememberMarkerCookie is a non-HTTP-only flag whose presence tells the
	// client a remember token exists without exposing it.
	RememberMarkerCookie = "remember_marker"
)
