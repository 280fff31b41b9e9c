package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisResendAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisResendRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisResendRateLimiter crea un rate limiter respaldado por Redis, para
// que el límite sobreviva reinicios y aplique entre réplicas.
func NewRedisResendRateLimiter(client *redis.Client, window time.Duration, max int) ResendRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisResendRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "resend:rl:",
	}
}

func (l *redisResendRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := l.prefix + normalizedKey
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisResendAllowScript, []string{redisKey}, seconds).Int()
	if err != nil {
		// si Redis no responde, no bloqueamos el reenvío
		return true
	}
	return count <= l.max
}
