package services

import (
	"context"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisService is the shared-store dependency of the rate limiter. The
// service starts degraded rather than failing boot when redis is down; the
// limiter falls back to its in-process window.
type RedisService struct {
	appContext.DefaultService

	client *redis.Client

	addr     string
	password string
	db       int
}

const REDIS_SVC = "redis_svc"

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.addr = os.Getenv("REDIS_ADDR")
	svc.password = os.Getenv("REDIS_PASSWORD")
	svc.db, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.addr == "" {
		log.Warn("REDIS_ADDR not set; redis-backed features run on in-process fallbacks")
		return nil
	}

	svc.client = redis.NewClient(&redis.Options{
		Addr:     svc.addr,
		Password: svc.password,
		DB:       svc.db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := svc.client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis unreachable at startup; continuing degraded")
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.client != nil {
		_ = svc.client.Close()
	}
}

// Client returns nil when redis is not configured.
func (svc *RedisService) Client() *redis.Client {
	return svc.client
}
