package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var DefaultEnvConfig *envConfig

type envConfig struct {
	// server config
	APP_PORT             string
	CORS_ALLOWED_ORIGINS []string
	// upstream config
	API_BASE_URL       string
	SOCKET_URL         string
	REQUEST_TIMEOUT    time.Duration
	SIGNED_URL_WORKERS int
	// listing config
	PAGE_SIZE int
	VIEW_TTL  time.Duration
	// logger config
	LOG_FILE_PATH string
	LOG_LEVEL     string
}

// LoadEnvConfig reads .env when present and then the process environment.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	apiBase := strings.TrimRight(getEnvString("API_BASE_URL", "http://localhost:3000"), "/")
	DefaultEnvConfig = &envConfig{
		APP_PORT:             getEnvString("APP_PORT", "8080"),
		CORS_ALLOWED_ORIGINS: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		API_BASE_URL:         apiBase,
		SOCKET_URL:           getEnvString("SOCKET_URL", socketURLFor(apiBase)),
		REQUEST_TIMEOUT:      getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		SIGNED_URL_WORKERS:   getEnvInt("SIGNED_URL_WORKERS", 4),
		PAGE_SIZE:            getEnvInt("PAGE_SIZE", 12),
		VIEW_TTL:             getEnvDuration("VIEW_TTL", 30*time.Minute),
		LOG_FILE_PATH:        getEnvString("LOG_FILE_PATH", ""),
		LOG_LEVEL:            getEnvString("LOG_LEVEL", "info"),
	}
	return nil
}

// socketURLFor derives the notification stream address from the API base URL.
func socketURLFor(apiBase string) string {
	switch {
	case strings.HasPrefix(apiBase, "https://"):
		return "wss://" + strings.TrimPrefix(apiBase, "https://") + "/ws"
	case strings.HasPrefix(apiBase, "http://"):
		return "ws://" + strings.TrimPrefix(apiBase, "http://") + "/ws"
	}
	return apiBase + "/ws"
}

func getEnvString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if i, err := strconv.Atoi(val); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
