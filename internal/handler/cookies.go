package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/auth"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

// CookieConfig controls the attributes of the session cookies. Secure is
// only turned off for plain-http local development.
type CookieConfig struct {
	Secure bool
}

func (cc CookieConfig) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (cc CookieConfig) setSession(c echo.Context, s auth.Session) {
	c.SetCookie(cc.cookie(accessCookieName, s.Access.Value, s.Access.ExpiresAt))
	c.SetCookie(cc.cookie(refreshCookieName, s.Refresh.Value, s.Refresh.ExpiresAt))
}

func (cc CookieConfig) clearSession(c echo.Context) {
	for _, name := range []string{accessCookieName, refreshCookieName} {
		ck := cc.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}
