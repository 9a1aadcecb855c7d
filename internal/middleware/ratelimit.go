package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/phishsim/internal/pkg/errcode"
	"github.com/xxxsen/phishsim/internal/pkg/response"
)

const (
	rateLimitKeyPrefix = "phishsim:ratelimit:"
	memoryLimiterSize  = 65536
)

// Limiter counts hits per key in fixed windows of the configured length.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type counter struct {
	start time.Time
	count int
}

type memoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries *expirable.LRU[string, *counter]
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) Limiter {
	return &memoryLimiter{
		limit:   limit,
		window:  window,
		entries: expirable.NewLRU[string, *counter](memoryLimiterSize, nil, window),
		now:     time.Now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries.Get(key)
	if !ok || now.Sub(entry.start) >= l.window {
		l.entries.Add(key, &counter{start: now, count: 1})
		return true, nil
	}
	entry.count++
	return entry.count <= l.limit, nil
}

type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisLimiter{client: client, limit: limit, window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rateLimitKeyPrefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// RateLimit keys hits by client ip and route. A limiter error lets the
// request through.
func RateLimit(limiter Limiter, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := strings.Join([]string{ip, path}, "|")
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logutil.GetLogger(c.Request.Context()).Error("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
				zap.String("ip", ip),
				zap.String("path", path),
			)
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, http.StatusText(http.StatusTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}
