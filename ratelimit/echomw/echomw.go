// Package echomw mounts a ratelimit.Limiter as echo middleware.
package echomw

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harmonic-studioz/pouchfi-api/ratelimit"
)

// Middleware enforces l per client IP and route path, with the same header
// and 429-body convention as the net/http middleware. Store errors fail
// open.
func Middleware(l *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := l.Consume(c.Request().Context(), ratelimit.Identity(c.RealIP(), c.Path()))
			if err != nil {
				return next(c)
			}
			ratelimit.SetHeaders(c.Response().Header(), l.Config(), res)
			if !res.Allowed {
				return c.JSON(http.StatusTooManyRequests, ratelimit.ErrorBody(l.Config()))
			}
			return next(c)
		}
	}
}
