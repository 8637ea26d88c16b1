package middleware

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chat-connect/internal/httpx"
	"chat-connect/internal/metrics"
)

// RateLimiter is a fixed-window limiter backed by Redis, used on the auth
// endpoints to slow down credential stuffing. When no Redis client is
// configured the limiter passes everything through.
type RateLimiter struct {
	client   *redis.Client
	logger   zerolog.Logger
	requests int
	window   time.Duration
}

func NewRateLimiter(client *redis.Client, logger zerolog.Logger, requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client:   client,
		logger:   logger,
		requests: requests,
		window:   window,
	}
}

func (rl *RateLimiter) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", r.URL.Path, clientIP(r))

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Redis being down must not take the auth endpoints with it.
			rl.logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, rl.window)
		}

		if count > int64(rl.requests) {
			metrics.RateLimitHitsTotal.WithLabelValues(routePattern(r)).Inc()
			rl.logger.Warn().
				Str("path", r.URL.Path).
				Str("ip", clientIP(r)).
				Int64("count", count).
				Msg("rate limit exceeded")
			httpx.JSON(w, http.StatusTooManyRequests, httpx.ErrorResponse{
				Timestamp: time.Now().UTC(),
				Status:    http.StatusTooManyRequests,
				Error:     http.StatusText(http.StatusTooManyRequests),
				Message:   "Too many requests, slow down",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
