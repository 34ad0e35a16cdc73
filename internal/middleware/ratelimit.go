package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	rd "github.com/redis/go-redis/v9"
)

// luaRateLimit is a sliding window over a sorted set of request timestamps.
// KEYS[1]=key, ARGV[1]=now ms, ARGV[2]=window start ms, ARGV[3]=window ms, ARGV[4]=member, ARGV[5]=limit.
// Returns the request count inside the window, or -1 once the limit is reached.
const luaRateLimit = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowMs = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)

if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, windowMs)
  return count + 1
else
  return -1
end
`

// RedisRateLimit limits how often a caller may hit the wrapped route within window.
//
// Callers are keyed by the authenticated user_id local, or by client IP when
// there is none. A nil client disables the limiter and Redis errors let the
// request through.
func RedisRateLimit(rdb *rd.Client, scope string, limit int, window time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || limit <= 0 {
			return c.Next()
		}

		var key string
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			key = fmt.Sprintf("rate_limit:%s:user:%s", scope, userID)
		} else {
			key = fmt.Sprintf("rate_limit:%s:ip:%s", scope, c.IP())
		}

		now := time.Now()
		nowMs := now.UnixMilli()
		windowMs := window.Milliseconds()
		member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())

		res, err := rdb.Eval(c.UserContext(), luaRateLimit, []string{key},
			nowMs, nowMs-windowMs, windowMs, member, limit).Int()
		if err != nil {
			logger.Warn("rate limiter unavailable, letting request through", "key", key, "error", err)
			return c.Next()
		}

		if res < 0 {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many requests, please try again later",
			})
		}
		return c.Next()
	}
}
