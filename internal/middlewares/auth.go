package middlewares

import (
	"crypto/subtle"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/lightsms/lightsms/pkg/response"
)

const (
	APIKeyHeader = "x-api-key"
	UserIDHeader = "x-user-id"

	// UserIDContextKey is where RequireUser stores the resolved user id.
	UserIDContextKey = "userID"
)

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func APIKeyAuth(apiKey string) echo.MiddlewareFunc {
	// If the API key is not configured, treat this as a server-side misconfiguration.
	if apiKey == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API key is not configured for this endpoint group"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(APIKeyHeader)
			if token == "" || !secureCompare(token, apiKey) {
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}

// RequireUser resolves the authenticated user id supplied by the auth
// boundary (token validation happens upstream; this core only consumes
// the resulting identity). Requests without a usable id are rejected.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(UserIDHeader)
			if raw == "" {
				return response.Unauthorized(c)
			}

			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				return response.Unauthorized(c)
			}

			c.Set(UserIDContextKey, userID)

			return next(c)
		}
	}
}

// UserID returns the id stored by RequireUser, or 0 when absent.
func UserID(c echo.Context) int64 {
	if id, ok := c.Get(UserIDContextKey).(int64); ok {
		return id
	}
	return 0
}
