package auth

import (
	"net/http"
	"strings"
)

// AccessTokenCookie carries the admin session token.
const AccessTokenCookie = "access_token"

// ExtractAccessToken reads the admin token from the session cookie, then from
// an Authorization: Bearer header.
func ExtractAccessToken(r *http.Request) string {
	// 1️⃣ Cookie (preferred)
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// 2️⃣ Authorization header (fallback)
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

// SessionCookie builds the cookie set on a successful admin login.
func SessionCookie(token string, expires int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/admin",
		MaxAge:   expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}
