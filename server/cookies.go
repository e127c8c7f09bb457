package server

import (
	"net/http"

	"github.com/labtrack/labtrack-auth/internal/config"
)

// setRememberCookies writes the HTTP-only remember cookie plus the
// script-visible marker. The marker lets the client decide whether an
// auto-login attempt is worth making without ever seeing the token value.
func setRememberCookies(w http.ResponseWriter, cfg config.TokenConfig, token string, secure bool) {
	maxAge := int(cfg.GetRememberTokenExpiry().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RememberMarkerCookie,
		Value:    "1",
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearRememberCookies expires both cookies with matching attributes.
func clearRememberCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{RememberCookie, RememberMarkerCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == RememberCookie,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Helper function to determine the scheme (http/https)
func isSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
