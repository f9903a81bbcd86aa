package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/custody/internal/auth"
	"github.com/congo-pay/custody/internal/kv"
)

const rateLimitPrefix = "rl:"

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *fiber.Ctx) string

// ByUserOrIP buckets authenticated requests per user and the rest per IP.
func ByUserOrIP(c *fiber.Ctx) string {
	if uid := auth.UserID(c); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.IP()
}

// ByPhoneOrIP buckets requests by the phone field of a JSON body, falling
// back to the client IP.
func ByPhoneOrIP(c *fiber.Ctx) string {
	var req struct {
		Phone string `json:"phone"`
	}
	_ = c.BodyParser(&req)
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		return "phone:" + phone
	}
	return "ip:" + c.IP()
}

// RateLimit allows perMinute requests per bucket in a fixed one minute
// window. Store failures let the request through.
func RateLimit(store kv.Store, scope string, perMinute int, key KeyFunc, logger *slog.Logger) fiber.Handler {
	if perMinute <= 0 {
		perMinute = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		if store == nil {
			return c.Next()
		}
		bucket := rateLimitPrefix + scope + ":" + key(c)
		count, err := store.Incr(c.UserContext(), bucket, time.Minute)
		if err != nil {
			logger.Warn("rate limit check failed", slog.String("bucket", bucket), slog.Any("error", err))
			return c.Next()
		}
		if count > int64(perMinute) {
			if ttl, err := store.TTL(c.UserContext(), bucket); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, retryAfter(ttl))
			}
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}

func retryAfter(ttl time.Duration) string {
	secs := int(ttl.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
