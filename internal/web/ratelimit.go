package web

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/csvingest/internal/config"
	"github.com/JonMunkholm/csvingest/internal/logging"
	"github.com/JonMunkholm/csvingest/internal/ratelimit"
	ingestmw "github.com/JonMunkholm/csvingest/internal/web/middleware"
)

const (
	rateWindow        = time.Minute
	redisKeyRequests  = "csvingest:ratelimit:requests:"
	redisKeyUploads   = "csvingest:ratelimit:uploads:"
	redisPingDeadline = 5 * time.Second
)

// Limiters holds the per-client limiters of the API: Requests applies to
// every /api route, Uploads additionally to the file endpoints.
type Limiters struct {
	Requests ratelimit.Limiter
	Uploads  ratelimit.Limiter
}

func (l Limiters) orNone() Limiters {
	if l.Requests == nil {
		l.Requests = ratelimit.None()
	}
	if l.Uploads == nil {
		l.Uploads = ratelimit.None()
	}
	return l
}

// NewLimiters builds limiters from cfg: none when disabled, Redis-backed
// when RedisURL is set, in-process otherwise. The returned func releases
// their resources.
func NewLimiters(ctx context.Context, cfg config.RateLimitConfig) (Limiters, func(), error) {
	if !cfg.Enabled {
		return Limiters{}.orNone(), func() {}, nil
	}

	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return Limiters{}, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, redisPingDeadline)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return Limiters{}, nil, err
		}
		return Limiters{
			Requests: ratelimit.NewRedis(client, redisKeyRequests, cfg.RequestsPerMinute, rateWindow),
			Uploads:  ratelimit.NewRedis(client, redisKeyUploads, cfg.UploadLimit, rateWindow),
		}, func() { _ = client.Close() }, nil
	}

	requests := ratelimit.NewMemory(cfg.RequestsPerMinute, rateWindow)
	uploads := ratelimit.NewMemory(cfg.UploadLimit, rateWindow)
	return Limiters{Requests: requests, Uploads: uploads}, func() {
		requests.Close()
		uploads.Close()
	}, nil
}

// rateLimit rejects clients over limit with 429. A limiter failure lets the
// request through.
func (s *Server) rateLimit(limiter ratelimit.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Allow(r.Context(), ingestmw.ClientIP(r))
			if err != nil {
				logging.FromContext(r.Context()).Warn("rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				if s.metrics != nil {
					s.metrics.ObserveRateLimited()
				}
				w.Header().Set("Retry-After", retryAfterSeconds(decision.RetryAfter))
				s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
