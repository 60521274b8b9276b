package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// TimeoutConfig bounds how long a request may spend in its handler. PDF
// conversion is usually the slowest step, so Timeout should exceed the
// converter's own deadline.
type TimeoutConfig struct {
	Timeout time.Duration
	// Skip lists path prefixes that run without a deadline.
	Skip   []string
	Logger zerolog.Logger
}

const timeoutMessage = "The request took too long. Please try again."

// RequestTimeout attaches a deadline to the request context and runs the
// handler on the request goroutine. Upstream calls and the converter observe
// the deadline and return; if it expired before anything was written the
// client gets 504.
func RequestTimeout(cfg TimeoutConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipped(c.Request().URL.Path, cfg.Skip) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return err
			}
			cfg.Logger.Warn().
				Str("path", c.Request().URL.Path).
				Dur("timeout", cfg.Timeout).
				Msg("request deadline exceeded")
			if c.Response().Committed {
				return err
			}
			return c.JSON(http.StatusGatewayTimeout, map[string]string{"message": timeoutMessage})
		}
	}
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
