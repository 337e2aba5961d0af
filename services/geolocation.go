package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/alexxvives/akademo_api/shared"
	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const GEOLOCATION_SVC = "geolocation_svc"

// GeolocationService turns the IP of a displacing device into a coarse
// "City, Region, Country" label for kick notices.
type GeolocationService struct {
	appContext.DefaultService

	httpClient  *http.Client
	apiURL      string
	cache       KeyValueStore
	cacheExpiry time.Duration
	enabled     bool
}

func (svc GeolocationService) Id() string {
	return GEOLOCATION_SVC
}

// NewGeolocationService builds an enabled service outside the container
func NewGeolocationService(apiURL string, cache KeyValueStore) *GeolocationService {
	return &GeolocationService{
		httpClient:  &http.Client{Timeout: 3 * time.Second},
		apiURL:      strings.TrimRight(apiURL, "/"),
		cache:       cache,
		cacheExpiry: 24 * time.Hour,
		enabled:     true,
	}
}

func (svc *GeolocationService) Configure(ctx *appContext.Context) error {
	svc.httpClient = &http.Client{
		Timeout: shared.GetEnvDuration("GEOLOCATION_TIMEOUT", 3*time.Second),
	}
	svc.apiURL = strings.TrimRight(shared.GetEnv("GEOLOCATION_API_URL", "http://ip-api.com/json"), "/")
	svc.cacheExpiry = 24 * time.Hour
	svc.enabled = shared.GetEnvBool("GEOLOCATION_ENABLED", false)
	return svc.DefaultService.Configure(ctx)
}

func (svc *GeolocationService) Start() error {
	if redisSvc, ok := svc.Service(REDIS_SVC).(*RedisService); ok {
		svc.cache = redisSvc.Store()
	}
	return nil
}

func (svc *GeolocationService) Enabled() bool {
	return svc != nil && svc.enabled
}

// GetLocationByIP never fails the caller: lookup problems are logged and
// reported as "Unknown".
func (svc *GeolocationService) GetLocationByIP(ctx context.Context, ip string) string {
	if ip == "" {
		return ""
	}
	if isLocalIP(ip) {
		return "Local"
	}
	if !svc.Enabled() {
		return ""
	}

	cacheKey := fmt.Sprintf("geolocation:simple:%s", ip)

	// Try to get from cache first
	if svc.cache != nil {
		cachedLocation, err := svc.cache.Get(ctx, cacheKey)
		if err == nil && cachedLocation != "" {
			log.WithField("ip", ip).Debug("Geolocation cache hit")
			return cachedLocation
		}
	}

	// Cache miss, fetch from API
	url := fmt.Sprintf("%s/%s?fields=status,country,regionName,city", svc.apiURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).WithField("ip", ip).Error("Failed to build geolocation request")
		return "Unknown"
	}

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		log.WithError(err).WithField("ip", ip).Error("Failed to get geolocation")
		return "Unknown"
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).WithField("ip", ip).Error("Geolocation API returned non-200 status")
		return "Unknown"
	}

	var result struct {
		Status     string `json:"status"`
		Country    string `json:"country"`
		RegionName string `json:"regionName"`
		City       string `json:"city"`
	}

	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.WithError(err).WithField("ip", ip).Error("Failed to decode geolocation response")
		return "Unknown"
	}

	if result.Status != "success" {
		log.WithField("status", result.Status).WithField("ip", ip).Warn("Geolocation lookup failed")
		return "Unknown"
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{result.City, result.RegionName, result.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	location := strings.Join(parts, ", ")
	if location == "" {
		location = "Unknown"
	}

	// Cache the result
	if svc.cache != nil {
		if err := svc.cache.Set(ctx, cacheKey, location, svc.cacheExpiry); err != nil {
			log.WithError(err).WithField("ip", ip).Warn("Failed to cache geolocation result")
		}
	}

	return location
}

func isLocalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified()
}
