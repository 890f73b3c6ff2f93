package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/model"
)

// Context keys set by the authentication gate.
const (
	ContextKeyAccount = "account"
	ContextKeyUserID  = "user_id"
)

// CurrentAccount returns the account resolved by the gate, if any.
func CurrentAccount(c echo.Context) (model.Account, bool) {
	a, ok := c.Get(ContextKeyAccount).(model.Account)
	return a, ok && a.ID != 0
}

// currentUserID returns the resolved account id as a string, or "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ContextKeyUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
