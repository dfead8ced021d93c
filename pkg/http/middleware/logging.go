package middleware

import (
	"time"

	"TCAVis/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging writes one debug line per request. Failed and slow requests are logged by Metrics.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			res := c.Response()
			l.Debug("http request",
				logger.String("request_id", requestID(c)),
				logger.String("method", c.Request().Method),
				logger.String("route", c.Path()),
				logger.String("uri", c.Request().RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", res.Status),
				logger.Int("bytes", int(res.Size)),
				logger.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
