package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexxvives/akademo_api/shared"
	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var errRedisNotInitialized = errors.New("redis client not initialized")

// KeyValueStore is the slice of Redis the session and rate limit services
// depend on. Missing keys read as "" with a nil error.
type KeyValueStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	IncrementWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error)
	// SetIfNewer stores value under key unless the key already holds a
	// higher version. It reports whether the write happened.
	SetIfNewer(ctx context.Context, key string, version int64, value string, expiration time.Duration) (bool, error)
	// GetVersioned reads a key written by SetIfNewer. ok is false when the
	// key is missing.
	GetVersioned(ctx context.Context, key string) (version int64, value string, ok bool, err error)
}

// setIfNewerScript compares and writes atomically on the server. Values are
// stored as "<version>|<value>".
var setIfNewerScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local sep = string.find(cur, '|', 1, true)
	if sep then
		local v = tonumber(string.sub(cur, 1, sep - 1))
		if v and v > tonumber(ARGV[1]) then
			return 0
		end
	end
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

func encodeVersioned(version int64, value string) string {
	return strconv.FormatInt(version, 10) + "|" + value
}

func decodeVersioned(raw string) (int64, string, bool) {
	head, value, found := strings.Cut(raw, "|")
	if !found {
		return 0, "", false
	}
	version, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, "", false
	}
	return version, value, true
}

type RedisService struct {
	appContext.DefaultService
	redis *redis.Client

	required bool
}

const REDIS_SVC = "redis_svc"

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.required = shared.GetEnvBool("REDIS_REQUIRED", false)
	if shared.GetEnvBool("REDIS_ENABLED", true) {
		svc.initRedisClient()
	}
	return svc.DefaultService.Configure(ctx)
}

// Start pings the server. An unreachable Redis only disables caching unless
// REDIS_REQUIRED is set; go-redis reconnects on its own once it is back.
func (svc *RedisService) Start() error {
	if svc.redis == nil {
		log.Warn("Redis disabled, session cache and rate limiting are off")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := svc.redis.Ping(ctx).Result(); err != nil {
		if svc.required {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.WithError(err).Warn("Redis unreachable, continuing without cache")
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		svc.redis.Close()
	}
}

func (svc *RedisService) initRedisClient() {
	svc.redis = redis.NewClient(&redis.Options{
		Addr:     shared.GetEnv("REDIS_ADDR", "localhost:6379"),
		Password: shared.GetEnv("REDIS_PASSWORD", ""),
		DB:       shared.GetEnvInt("REDIS_DB", 0),
	})
}

func (svc *RedisService) GetClient() *redis.Client {
	return svc.redis
}

// Store returns svc as a KeyValueStore, or nil when Redis is disabled so
// callers can skip the cache entirely.
func (svc *RedisService) Store() KeyValueStore {
	if svc == nil || svc.redis == nil {
		return nil
	}
	return svc
}

func (svc *RedisService) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}

	var data []byte
	var err error

	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		data, err = sonic.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
	}

	return svc.redis.Set(ctx, key, data, expiration).Err()
}

func (svc *RedisService) Get(ctx context.Context, key string) (string, error) {
	if svc.redis == nil {
		return "", errRedisNotInitialized
	}

	result, err := svc.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return result, err
}

func (svc *RedisService) GetJSON(ctx context.Context, key string, dest interface{}) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}

	result, err := svc.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	return sonic.Unmarshal([]byte(result), dest)
}

func (svc *RedisService) Delete(ctx context.Context, keys ...string) error {
	if svc.redis == nil {
		return errRedisNotInitialized
	}

	return svc.redis.Del(ctx, keys...).Err()
}

func (svc *RedisService) Exists(ctx context.Context, key string) (bool, error) {
	if svc.redis == nil {
		return false, errRedisNotInitialized
	}

	result, err := svc.redis.Exists(ctx, key).Result()
	return result > 0, err
}

func (svc *RedisService) TTL(ctx context.Context, key string) (time.Duration, error) {
	if svc.redis == nil {
		return 0, errRedisNotInitialized
	}

	return svc.redis.TTL(ctx, key).Result()
}

// IncrementWithExpiry bumps a fixed window counter. The expiry is only set
// when the key is created so the window does not slide.
func (svc *RedisService) IncrementWithExpiry(ctx context.Context, key string, window time.Duration) (int64, error) {
	if svc.redis == nil {
		return 0, errRedisNotInitialized
	}

	pipe := svc.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (svc *RedisService) SetIfNewer(ctx context.Context, key string, version int64, value string, expiration time.Duration) (bool, error) {
	if svc.redis == nil {
		return false, errRedisNotInitialized
	}
	if expiration <= 0 {
		return false, fmt.Errorf("expiration must be positive, got %v", expiration)
	}

	written, err := setIfNewerScript.Run(ctx, svc.redis, []string{key}, version, encodeVersioned(version, value), expiration.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

func (svc *RedisService) GetVersioned(ctx context.Context, key string) (int64, string, bool, error) {
	raw, err := svc.Get(ctx, key)
	if err != nil || raw == "" {
		return 0, "", false, err
	}
	version, value, ok := decodeVersioned(raw)
	return version, value, ok, nil
}
