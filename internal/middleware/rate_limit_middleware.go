package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/config"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// NewRateLimitConfig строит лимит для группы эндпоинтов из настроек приложения.
// Ключи счетчиков живут в пространстве имен хранилища, рядом с данными.
func NewRateLimitConfig(cfg config.RateLimitConfig, namespace, group string) RateLimitConfig {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 30
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	prefix := "rl:" + group
	if namespace != "" {
		prefix = namespace + ":" + prefix
	}
	return RateLimitConfig{MaxRequests: maxRequests, Window: window, KeyPrefix: prefix}
}

// RateLimiter создаёт middleware для rate limiting на основе Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
	logger      *zap.Logger
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{redisClient: redisClient, logger: logging.OrNop(logger)}
}

// hitScript увеличивает счетчик и задает TTL только новому ключу.
// Возвращает {count, pttl_ms}.
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// window - состояние счетчика после учета запроса
type window struct {
	count int64
	reset time.Duration
}

func (rl *RateLimiter) hit(ctx context.Context, key string, length time.Duration) (window, error) {
	res, err := hitScript.Run(ctx, rl.redisClient, []string{key}, length.Milliseconds()).Slice()
	if err != nil {
		return window{}, err
	}
	if len(res) != 2 {
		return window{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}
	count, _ := res[0].(int64)
	pttl, _ := res[1].(int64)
	reset := time.Duration(pttl) * time.Millisecond
	if reset <= 0 {
		reset = length
	}
	return window{count: count, reset: reset}, nil
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP и шаблона маршрута, поэтому жалобы на разные вопросы
// расходуют общий лимит. При недоступном Redis запрос пропускается.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	limit := strconv.Itoa(cfg.MaxRequests)

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := strings.Join([]string{cfg.KeyPrefix, c.ClientIP(), route}, ":")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		w, err := rl.hit(ctx, key, cfg.Window)
		if err != nil {
			rl.logger.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		left := int64(cfg.MaxRequests) - w.count
		if left < 0 {
			left = 0
		}
		resetSeconds := strconv.Itoa(int(math.Ceil(w.reset.Seconds())))

		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(left, 10))
		c.Header("X-RateLimit-Reset", resetSeconds)

		if w.count <= int64(cfg.MaxRequests) {
			c.Next()
			return
		}

		rl.logger.Info("rate limit exceeded",
			zap.String("key", key),
			zap.Int64("count", w.count),
			zap.Int("limit", cfg.MaxRequests))
		c.Header("Retry-After", resetSeconds)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "Too many requests. Please try again later.",
			"error_type":  "rate_limited",
			"retry_after": int(math.Ceil(w.reset.Seconds())),
		})
	}
}
