package session

import (
	"net/http"
	"time"
)

// CookieName is the cookie holding the bearer token in the local web front.
const CookieName = "access_token"

// NewCookie builds the token cookie with the server-declared expiry.
func NewCookie(token string, expiry time.Time, production bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		Secure:   production,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredCookie deletes the token cookie.
func ExpiredCookie(production bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   production,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// FromRequest reads the token cookie, returning "" when absent.
func FromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
