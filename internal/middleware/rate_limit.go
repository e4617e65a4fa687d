package middleware

import (
	"context"
	"log"
	"strconv"
	"time"

	"techmart/internal/common"

	"github.com/labstack/echo/v4"
)

// RateLimiter counts requests per key within a window.
type RateLimiter interface {
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit rejects clients that exceed limit requests per window, keyed by
// client IP. Limiter errors let the request through.
func RateLimit(limiter RateLimiter, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limit <= 0 {
				return next(c)
			}
			limited, err := limiter.IsRateLimited(c.Request().Context(), c.RealIP(), limit, window)
			if err != nil {
				log.Printf("WARN: Rate limiter unavailable, allowing request: %v", err)
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return common.SendTooManyRequests(c)
			}
			return next(c)
		}
	}
}
