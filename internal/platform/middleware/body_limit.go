package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultBodyLimit int64 = 64 << 10

// BodyLimit caps request bodies at size ("64K", "1M" or a byte count).
// Report selections and status updates are a few hundred bytes, so anything
// beyond the cap is answered with 413 before or while the handler binds it.
func BodyLimit(size string) echo.MiddlewareFunc {
	limit := ParseSize(size)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > limit {
				return tooLarge(limit)
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)

			err := next(c)
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return tooLarge(limit)
			}
			return err
		}
	}
}

func tooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// ParseSize converts "512", "64K"/"64KB" or "1M"/"1MB" to bytes. Unparseable
// or non-positive sizes fall back to 64 KB.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "B")

	shift := 0
	switch {
	case strings.HasSuffix(s, "K"):
		shift = 10
	case strings.HasSuffix(s, "M"):
		shift = 20
	}
	if shift > 0 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n << shift
}
