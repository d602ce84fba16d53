package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/skilltrail/academy_api/dto"
	"github.com/skilltrail/academy_api/shared"
)

type rateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// fallbackWindow is one fixed counting window for a single caller.
type fallbackWindow struct {
	count   int
	resetAt time.Time
}

// maxFallbackEntries bounds the in-process map so an address sweep cannot
// grow it without limit; the oldest-expiring half is evicted on overflow.
const maxFallbackEntries = 10_000

// RateLimitService enforces fixed-window limits per caller per endpoint
// class. Windows live in redis so all instances share them; without redis it
// degrades to a bounded in-process map.
type RateLimitService struct {
	appContext.DefaultService

	redisSvc *RedisService

	configs map[string]rateLimitConfig

	mu       sync.Mutex
	fallback map[string]*fallbackWindow
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.configs = map[string]rateLimitConfig{
		"auth":     {Requests: 10, Window: time.Minute},
		"tracking": {Requests: 120, Window: time.Minute},
		"quiz":     {Requests: 30, Window: time.Minute},
		"webhook":  {Requests: 300, Window: time.Minute},
		"default":  {Requests: 60, Window: time.Minute},
	}
	svc.fallback = make(map[string]*fallbackWindow)

	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	return nil
}

// Check consumes one request from the caller's window.
func (svc *RateLimitService) Check(identity, endpointType string) *dto.RateLimitInfo {
	cfg, ok := svc.configs[endpointType]
	if !ok {
		cfg = svc.configs["default"]
	}

	key := fmt.Sprintf("rl:%s:%s", endpointType, identity)

	if client := svc.redisSvc.Client(); client != nil {
		info, err := svc.checkRedis(client, key, cfg)
		if err == nil {
			return info
		}
		log.WithError(err).Debug("redis rate limit check failed; using fallback")
	}
	return svc.checkFallback(key, cfg)
}

func (svc *RateLimitService) checkRedis(client *redis.Client, key string, cfg rateLimitConfig) (*dto.RateLimitInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if count == 1 {
		if err = client.Expire(ctx, key, cfg.Window).Err(); err != nil {
			return nil, err
		}
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = cfg.Window
	}
	now := time.Now()
	return windowInfo(int(count), cfg.Requests, now.Add(ttl), now), nil
}

// Middleware wraps Check for Fiber routes. Authenticated callers are limited
// per user, anonymous ones per address.
func (svc *RateLimitService) Middleware(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, _ := c.Locals(shared.UserID).(string)
		if identity == "" {
			identity = c.IP()
		}

		info := svc.Check(identity, endpointType)
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		if !info.Allowed {
			c.Set("Retry-After", strconv.Itoa(info.RetryAfter))
			return shared.ResponseJSON(c, fiber.StatusTooManyRequests, "Too Many Requests", nil)
		}
		return c.Next()
	}
}

func (svc *RateLimitService) checkFallback(key string, cfg rateLimitConfig) *dto.RateLimitInfo {
	now := time.Now()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if len(svc.fallback) >= maxFallbackEntries {
		svc.evictLocked(now)
	}

	win, ok := svc.fallback[key]
	if !ok || now.After(win.resetAt) {
		win = &fallbackWindow{resetAt: now.Add(cfg.Window)}
		svc.fallback[key] = win
	}
	win.count++

	return windowInfo(win.count, cfg.Requests, win.resetAt, now)
}

// evictLocked drops expired windows first, then arbitrary ones until the map
// is half empty. Dropping a live window only resets that caller's count.
func (svc *RateLimitService) evictLocked(now time.Time) {
	for key, win := range svc.fallback {
		if now.After(win.resetAt) {
			delete(svc.fallback, key)
		}
	}
	for key := range svc.fallback {
		if len(svc.fallback) <= maxFallbackEntries/2 {
			break
		}
		delete(svc.fallback, key)
	}
}

func windowInfo(count, limit int, resetAt, now time.Time) *dto.RateLimitInfo {
	info := &dto.RateLimitInfo{
		Allowed:   count <= limit,
		Remaining: limit - count,
		ResetTime: &resetAt,
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	if !info.Allowed {
		info.RetryAfter = int(resetAt.Sub(now).Seconds()) + 1
	}
	return info
}
