package middleware

import (
	"time"

	"FollowFeed/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one debug line per request.
func RequestLogging(lgr *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			lgr.Debug("request",
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", c.Response().Status),
				logger.Duration("latency_ms", time.Since(start)),
			)
			return nil
		}
	}
}
