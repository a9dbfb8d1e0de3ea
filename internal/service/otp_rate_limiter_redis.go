package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindowScript incrementa un contador y fija su TTL en el primer hit.
const incrWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

const redisCallTimeout = 500 * time.Millisecond

type redisOTPRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int) OTPRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisOTPRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "otp:rl:",
	}
}

// Allow falla abierto: un error de Redis no bloquea la solicitud.
func (l *redisOTPRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisCallTimeout)
	defer cancel()

	count, err := l.client.Eval(ctx, incrWindowScript, []string{l.prefix + normalizedKey}, windowSeconds(l.window)).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}

func windowSeconds(window time.Duration) int {
	seconds := int(window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	return seconds
}
