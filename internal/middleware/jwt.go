package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tubehub/tubehub-api/internal/apperr"
	"github.com/tubehub/tubehub-api/internal/auth"
	"github.com/tubehub/tubehub-api/internal/model"
	"github.com/tubehub/tubehub-api/internal/repository"
)

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "accessToken"

// AccessVerifier checks an access token and returns its claims.
type AccessVerifier interface {
	VerifyAccess(raw string) (*auth.AccessClaims, error)
}

// AccountLookup resolves the account named by a token.
type AccountLookup interface {
	FindByID(ctx context.Context, id uint64) (model.Account, error)
}

// Authenticate returns the gate placed in front of identity-requiring
// routes. The token comes from the accessToken cookie, else from an
// "Authorization: Bearer" header. On success the sanitized account is
// stored under "account" and its id under "user_id"; on any failure the
// request stops with a 401.
func Authenticate(v AccessVerifier, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFrom(c)
			if raw == "" {
				return apperr.Unauthorized("unauthorized request")
			}
			if err := resolve(c, v, accounts, raw); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuthenticate resolves the caller when credentials are present and
// lets anonymous requests through. Presented but invalid credentials are
// still rejected.
func OptionalAuthenticate(v AccessVerifier, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := tokenFrom(c); raw != "" {
				if err := resolve(c, v, accounts, raw); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}

func resolve(c echo.Context, v AccessVerifier, accounts AccountLookup, raw string) error {
	claims, err := v.VerifyAccess(raw)
	if err != nil {
		return err
	}
	id, err := claims.AccountID()
	if err != nil {
		return apperr.InvalidToken("invalid access token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	acc, err := accounts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Unauthorized("invalid access token")
	}
	if err != nil {
		return apperr.Internal("failed to load account", err)
	}

	c.Set(ContextKeyAccount, acc.Sanitized())
	c.Set(ContextKeyUserID, strconv.FormatUint(acc.ID, 10))
	return nil
}

// tokenFrom prefers the cookie over the Authorization header.
func tokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && strings.TrimSpace(ck.Value) != "" {
		return strings.TrimSpace(ck.Value)
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
