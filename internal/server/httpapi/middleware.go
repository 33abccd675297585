package httpapi

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tenantdrive/internal/common"
	"github.com/dmitrijs2005/tenantdrive/internal/logging"
	"github.com/dmitrijs2005/tenantdrive/internal/server/auth"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const claimsKey = "claims"

func requestLogger(l logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency.String()}
			if v.Error != nil {
				args = append(args, "error", v.Error.Error())
			}
			ctx := c.Request().Context()
			if v.Status >= 500 {
				l.Error(ctx, "request", args...)
			} else {
				l.Info(ctx, "request", args...)
			}
			return nil
		},
	})
}

// bearerAuth verifies an Authorization: Bearer token when one is sent and
// stores its claims on the context.
func bearerAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(common.AuthorizationHeaderName)
			if header == "" {
				return next(c)
			}

			token, ok := strings.CutPrefix(header, common.BearerPrefix)
			if !ok || token == "" {
				return fmt.Errorf("%w: malformed authorization header", common.ErrorUnauthorized)
			}

			claims, err := auth.ParseToken(token, secret)
			if err != nil {
				return err
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// actingUser resolves the user a request runs as. With a token, a supplied
// userId must match it and an absent one is taken from it.
func actingUser(c echo.Context, supplied string) (string, error) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	if !ok {
		return supplied, nil
	}
	if supplied == "" {
		return claims.UserID, nil
	}
	if supplied != claims.UserID {
		return "", fmt.Errorf("%w: userId does not match token", common.ErrorUnauthorized)
	}
	return supplied, nil
}
