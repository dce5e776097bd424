package middleware

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"hubauth/config"
	"hubauth/internal/delivery/api/response"
	deliverycontext "hubauth/internal/delivery/context"
	domainerrors "hubauth/internal/domain/errors"
)

const defaultCleanupInterval = 5 * time.Minute

// clientLimiter is the token bucket of one client IP.
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles the unauthenticated credential endpoints per client IP.
type RateLimiter struct {
	perMinute       int
	limit           rate.Limit
	burst           int
	cleanupInterval time.Duration
	logger          *slog.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRateLimiter starts the background loop that forgets idle clients.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}

	rl := &RateLimiter{
		perMinute:       cfg.RequestsPerMinute,
		limit:           rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:           cfg.Burst,
		cleanupInterval: cleanupInterval,
		logger:          logger,
		clients:         make(map[string]*clientLimiter),
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup loop and waits for it to exit. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	<-rl.doneCh
}

// Limit rejects requests over the client's budget with 429 TOO_MANY_REQUESTS.
func (rl *RateLimiter) Limit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		clientIP := c.RealIP()
		if rl.limiterFor(clientIP, time.Now()).Allow() {
			return next(c)
		}

		deliverycontext.GetLoggerOrDefault(c.Request().Context(), rl.logger).Warn("Rate limit exceeded",
			slog.String("remote_ip", clientIP),
			slog.String("route", c.Path()),
		)

		c.Response().Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))

		return response.Error(
			c,
			domainerrors.ErrTooManyRequests.HTTPCode(),
			domainerrors.ErrTooManyRequests.ErrorCode(),
			domainerrors.ErrTooManyRequests.Message(),
			nil,
		)
	}
}

// ClientCount reports how many client buckets are tracked.
func (rl *RateLimiter) ClientCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return len(rl.clients)
}

func (rl *RateLimiter) limiterFor(clientIP string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, ok := rl.clients[clientIP]
	if !ok {
		client = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[clientIP] = client
	}
	client.lastAccess = now

	return client.limiter
}

// retryAfterSeconds is the time until one token is refilled.
func (rl *RateLimiter) retryAfterSeconds() int {
	if rl.perMinute <= 0 {
		return 60
	}

	return max((60+rl.perMinute-1)/rl.perMinute, 1)
}

func (rl *RateLimiter) cleanupLoop() {
	defer close(rl.doneCh)

	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.cleanup(now)
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops clients idle for more than two cleanup intervals.
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.cleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for clientIP, client := range rl.clients {
		if now.Sub(client.lastAccess) > ttl {
			delete(rl.clients, clientIP)
		}
	}
}
