package middleware

import (
	"net/http"
	"time"

	"PollinatorTracker/pkg/response"

	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var (
	ErrTooManyRequests = response.NewError(http.StatusTooManyRequests, "Too many requests")
)

// Limiters of clients that stay quiet this long are forgotten.
const limiterIdleTTL = 10 * time.Minute

type rateLimiter struct {
	bucket    *gocache.Cache
	rate      rate.Limit
	burstSize int
}

func newRateLimiter(reqRate float64, burstSize int) *rateLimiter {
	if burstSize <= 0 {
		burstSize = int(reqRate) + 1
	}
	return &rateLimiter{
		bucket:    gocache.New(limiterIdleTTL, limiterIdleTTL),
		rate:      rate.Limit(reqRate),
		burstSize: burstSize,
	}
}

func (r *rateLimiter) GetLimiterFrom(ip string) *rate.Limiter {
	if v, ok := r.bucket.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		r.bucket.SetDefault(ip, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(r.rate, r.burstSize)
	if err := r.bucket.Add(ip, limiter, gocache.DefaultExpiration); err != nil {
		// another request for the same client won the race
		if v, ok := r.bucket.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

func (m *middleware) NewRateLimiter(ctx *fiber.Ctx) error {
	if m.rateLimitter == nil {
		return ctx.Next()
	}

	clientIP := ctx.IP()
	limiter := m.rateLimitter.GetLimiterFrom(clientIP)

	if !limiter.Allow() {
		m.log.Warnf("too many requests for IP %s", clientIP)
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": ErrTooManyRequests.Error(),
		})
	}

	return ctx.Next()
}
