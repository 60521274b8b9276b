package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const healthPingTimeout = 5 * time.Second

// PoolStats is the connection pool snapshot included in the archive health
// response.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats reads the current pool counters.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Pinger is the part of the pool the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ArchiveHealth is the body of GET /health/db.
type ArchiveHealth struct {
	// Status is healthy, unhealthy or disabled.
	Status string `json:"status"`
	// Archive names the backend report requests are recorded in.
	Archive string     `json:"archive"`
	Error   string     `json:"error,omitempty"`
	Pool    *PoolStats `json:"pool,omitempty"`
}

// HealthHandler reports whether the report archive database answers. Without
// a pool the archive lives in memory and the check reports "disabled" with
// 200, since the service works fine without Postgres.
func HealthHandler(pool *pgxpool.Pool, logger zerolog.Logger) echo.HandlerFunc {
	if pool == nil {
		return archiveHealth(nil, nil, logger)
	}
	return archiveHealth(pool, func() *PoolStats { return GetPoolStats(pool) }, logger)
}

func archiveHealth(p Pinger, stats func() *PoolStats, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p == nil {
			return c.JSON(http.StatusOK, ArchiveHealth{Status: "disabled", Archive: "memory"})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		h := ArchiveHealth{Status: "healthy", Archive: "postgres"}
		if stats != nil {
			h.Pool = stats()
		}
		if err := p.Ping(ctx); err != nil {
			logger.Error().Err(err).Msg("archive database ping failed")
			h.Status = "unhealthy"
			h.Error = "archive database unreachable"
			if h.Pool != nil {
				h.Pool.Healthy = false
			}
			return c.JSON(http.StatusServiceUnavailable, h)
		}
		return c.JSON(http.StatusOK, h)
	}
}
