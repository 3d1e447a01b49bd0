package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"codegate/pkg/models"
)

const accountContextKey = "account"

// RequireAuth is middleware that ensures a valid Bearer token is present
// and injects the resolved account into the request context.
func RequireAuth(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			acct, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				status := http.StatusUnauthorized
				var ae *Error
				if errors.As(err, &ae) && ae.Kind == KindAccountDisabled {
					status = http.StatusForbidden
				}
				return echo.NewHTTPError(status, err.Error())
			}
			c.Set(accountContextKey, acct)
			return next(c)
		}
	}
}

// RequireAdmin restricts a route group to admin accounts. It must run
// after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acct := CurrentAccount(c)
			if acct == nil || !acct.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}

// CurrentAccount returns the account RequireAuth stored on the context,
// or nil if the request is unauthenticated.
func CurrentAccount(c echo.Context) *models.Account {
	acct, _ := c.Get(accountContextKey).(*models.Account)
	return acct
}
