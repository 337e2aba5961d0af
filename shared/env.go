package shared

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvInt(key string, defaultVal int) int {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}

func GetEnvFloat(key string, defaultVal float64) float64 {
	if val, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return val
	}
	return defaultVal
}

func GetEnvBool(key string, defaultVal bool) bool {
	if val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return val
	}
	return defaultVal
}

// GetEnvDuration accepts Go duration strings ("30s", "15m").
func GetEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return val
	}
	return defaultVal
}
