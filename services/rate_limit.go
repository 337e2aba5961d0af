package services

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alexxvives/akademo_api/dto"
	"github.com/alexxvives/akademo_api/shared"
	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const (
	EndpointProgressTick = "progress_tick"
	EndpointSessionCheck = "session_check"
	EndpointAPIGeneral   = "api_general"
)

// RateLimitService applies fixed window limits kept in Redis so every API
// instance shares the same counters. Without Redis every request is allowed.
type RateLimitService struct {
	appContext.DefaultService

	configs map[string]*RateLimitConfig
	mutex   sync.RWMutex

	store      KeyValueStore
	monitoring *MonitoringService
	enabled    bool
}

// RateLimitConfig represents rate limiting configuration
type RateLimitConfig struct {
	EndpointType string
	MaxRequests  int
	WindowSize   time.Duration
	BlockTime    time.Duration
	Description  string
	IsActive     bool
}

const RATE_LIMIT_SVC = "rate_limit_svc"

func (svc RateLimitService) Id() string {
	return RATE_LIMIT_SVC
}

func NewRateLimitService(store KeyValueStore) *RateLimitService {
	svc := &RateLimitService{store: store, enabled: true}
	svc.initDefaultConfigs()
	return svc
}

func (svc *RateLimitService) Configure(ctx *appContext.Context) error {
	svc.enabled = shared.GetEnvBool("RATE_LIMIT_ENABLED", true)
	svc.initDefaultConfigs()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitService) Start() error {
	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok {
		svc.store = redisSvc.Store()
	}
	if monitoring, ok := svc.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.monitoring = monitoring
	}
	if svc.store == nil {
		log.Warn("Rate limiting disabled, no Redis store available")
	}
	return nil
}

func (svc *RateLimitService) initDefaultConfigs() {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	svc.configs = map[string]*RateLimitConfig{
		EndpointProgressTick: {
			EndpointType: EndpointProgressTick,
			MaxRequests:  shared.GetEnvInt("RATE_LIMIT_PROGRESS_TICK", 60),
			WindowSize:   time.Minute,
			BlockTime:    time.Minute,
			Description:  "Progress ticks per user",
			IsActive:     true,
		},
		EndpointSessionCheck: {
			EndpointType: EndpointSessionCheck,
			MaxRequests:  shared.GetEnvInt("RATE_LIMIT_SESSION_CHECK", 30),
			WindowSize:   time.Minute,
			BlockTime:    2 * time.Minute,
			Description:  "Session check-ins and validations per user",
			IsActive:     true,
		},
		EndpointAPIGeneral: {
			EndpointType: EndpointAPIGeneral,
			MaxRequests:  shared.GetEnvInt("RATE_LIMIT_API_GENERAL", 300),
			WindowSize:   time.Minute,
			BlockTime:    time.Minute,
			Description:  "General API rate limit per IP",
			IsActive:     true,
		},
	}
}

// SetConfig replaces the limits of one endpoint type
func (svc *RateLimitService) SetConfig(config RateLimitConfig) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.configs[config.EndpointType] = &config
}

// ==================== CORE RATE LIMITING LOGIC ====================

func (svc *RateLimitService) IsAllowed(ctx context.Context, identifier, endpointType string) (bool, *dto.RateLimitInfo, error) {
	svc.mutex.RLock()
	config, exists := svc.configs[endpointType]
	svc.mutex.RUnlock()

	if !svc.enabled || svc.store == nil || !exists || !config.IsActive {
		// If no config exists or inactive, allow the request
		return true, &dto.RateLimitInfo{
			Allowed:   true,
			Remaining: -1,
		}, nil
	}

	now := time.Now()
	blockKey := fmt.Sprintf("ratelimit:block:%s:%s", endpointType, identifier)
	counterKey := fmt.Sprintf("ratelimit:count:%s:%s", endpointType, identifier)

	// Check if currently blocked
	blocked, err := svc.store.Exists(ctx, blockKey)
	if err != nil {
		return false, nil, err
	}
	if blocked {
		ttl, err := svc.store.TTL(ctx, blockKey)
		if err != nil || ttl <= 0 {
			ttl = config.BlockTime
		}
		blockedUntil := now.Add(ttl)
		return false, &dto.RateLimitInfo{
			Allowed:      false,
			Remaining:    0,
			ResetTime:    &blockedUntil,
			BlockedUntil: &blockedUntil,
		}, nil
	}

	count, err := svc.store.IncrementWithExpiry(ctx, counterKey, config.WindowSize)
	if err != nil {
		return false, nil, err
	}

	// Check if limit exceeded
	if count > int64(config.MaxRequests) {
		blockedUntil := now.Add(config.BlockTime)
		if err := svc.store.Set(ctx, blockKey, "1", config.BlockTime); err != nil {
			return false, nil, err
		}
		return false, &dto.RateLimitInfo{
			Allowed:      false,
			Remaining:    0,
			ResetTime:    &blockedUntil,
			BlockedUntil: &blockedUntil,
		}, nil
	}

	resetTime := now.Add(config.WindowSize)
	if ttl, err := svc.store.TTL(ctx, counterKey); err == nil && ttl > 0 {
		resetTime = now.Add(ttl)
	}

	return true, &dto.RateLimitInfo{
		Allowed:   true,
		Remaining: config.MaxRequests - int(count),
		ResetTime: &resetTime,
	}, nil
}

// ==================== MIDDLEWARE FUNCTIONS ====================

// IPRateLimit applies general rate limiting by IP address
func (svc *RateLimitService) IPRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return svc.limit(c, GetClientIP(c), EndpointAPIGeneral)
	}
}

// UserBasedRateLimit applies rate limiting based on authenticated user
func (svc *RateLimitService) UserBasedRateLimit(endpointType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, _ := c.Locals(shared.UserID).(string)
		if identifier == "" {
			// Fall back to IP if user not authenticated
			identifier = GetClientIP(c)
		}
		return svc.limit(c, identifier, endpointType)
	}
}

func (svc *RateLimitService) limit(c *fiber.Ctx, identifier, endpointType string) error {
	allowed, info, err := svc.IsAllowed(c.UserContext(), identifier, endpointType)
	if err != nil {
		log.Printf("Rate limit check error for %s (%s): %v", endpointType, identifier, err)
		// Continue with request on error to avoid blocking users due to system issues
		return c.Next()
	}

	// Add rate limit headers
	svc.addRateLimitHeaders(c, info)

	if !allowed {
		svc.monitoring.RecordRateLimited(endpointType)
		return svc.handleRateLimitExceeded(c, endpointType, info)
	}

	return c.Next()
}

// ==================== HELPER FUNCTIONS ====================

func (svc *RateLimitService) addRateLimitHeaders(c *fiber.Ctx, info *dto.RateLimitInfo) {
	if info == nil {
		return
	}

	if info.Remaining >= 0 {
		c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	}

	if info.ResetTime != nil {
		c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}

	if info.BlockedUntil != nil {
		retryAfter := int(time.Until(*info.BlockedUntil).Seconds())
		if retryAfter > 0 {
			c.Set("Retry-After", strconv.Itoa(retryAfter))
		}
	}
}

func (svc *RateLimitService) handleRateLimitExceeded(c *fiber.Ctx, endpointType string, info *dto.RateLimitInfo) error {
	message := svc.getRateLimitMessage(endpointType)

	response := map[string]interface{}{
		"error":   "Rate limit exceeded",
		"message": message,
	}

	if info.BlockedUntil != nil {
		response["blocked_until"] = info.BlockedUntil.Unix()
		response["retry_after"] = int(time.Until(*info.BlockedUntil).Seconds())
	}

	return shared.NewTooManyRequestsError(nil, message, response)
}

func (svc *RateLimitService) getRateLimitMessage(endpointType string) string {
	messages := map[string]string{
		EndpointProgressTick: "Too many progress updates. Please slow down.",
		EndpointSessionCheck: "Too many session checks. Please try again later.",
		EndpointAPIGeneral:   "Too many requests. Please slow down.",
	}

	if message, exists := messages[endpointType]; exists {
		return message
	}

	return "Too many requests. Please try again later."
}

// GetClientIP returns the originating client address, honouring the usual
// proxy headers.
func GetClientIP(c *fiber.Ctx) string {
	// Check for forwarded IP first (for load balancers/proxies)
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		ip := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if ip != "" {
			return ip
		}
	}

	// Check for real IP header
	if realIP := c.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	// Check Cloudflare header
	if cfIP := c.Get("CF-Connecting-IP"); cfIP != "" {
		return cfIP
	}

	// Fall back to remote address
	ip, _, err := net.SplitHostPort(c.Context().RemoteAddr().String())
	if err != nil {
		return c.Context().RemoteAddr().String()
	}

	return ip
}
