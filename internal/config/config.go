package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Backend BackendConfig
	Views   ViewsConfig
	Login   LoginConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type SessionConfig struct {
	Secret string
	MaxAge int // seconds
	Secure bool
}

type BackendConfig struct {
	BaseURL            string // e.g. http://127.0.0.1:8000/api
	StorageURL         string // public prefix for relative image paths
	Timeout            time.Duration
	BreakerMaxFailures int
	BreakerOpenTimeout time.Duration
}

type ViewsConfig struct {
	TTL                  time.Duration
	MaxOpen              int
	RestoreFailedDeletes bool
}

type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// MockBackend is the BACKEND_URL value that serves the in-memory demo backend
const MockBackend = "mock"

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	backendURL := strings.TrimRight(getEnv("BACKEND_URL", "http://127.0.0.1:8000/api"), "/")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", "your-secret-key-change-in-production"),
			MaxAge: getEnvAsInt("SESSION_MAX_AGE", 86400*7),
			Secure: getEnvAsBool("SESSION_SECURE", false),
		},
		Backend: BackendConfig{
			BaseURL:            backendURL,
			StorageURL:         strings.TrimRight(getEnv("STORAGE_URL", defaultStorageURL(backendURL)), "/"),
			Timeout:            time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,
			BreakerMaxFailures: getEnvAsInt("BACKEND_BREAKER_MAX_FAILURES", 5),
			BreakerOpenTimeout: time.Duration(getEnvAsInt("BACKEND_BREAKER_OPEN_SECONDS", 30)) * time.Second,
		},
		Views: ViewsConfig{
			TTL:                  time.Duration(getEnvAsInt("VIEW_TTL_MINUTES", 30)) * time.Minute,
			MaxOpen:              getEnvAsInt("VIEW_MAX_OPEN", 10000),
			RestoreFailedDeletes: getEnvAsBool("CART_RESTORE_FAILED_DELETES", false),
		},
		Login: LoginConfig{
			MaxAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			Window:      time.Duration(getEnvAsInt("LOGIN_WINDOW_MINUTES", 15)) * time.Minute,
		},
	}

	return config, nil
}

// UsesMockBackend reports whether the in-memory demo backend should be served
func (c *Config) UsesMockBackend() bool {
	return c.Backend.BaseURL == MockBackend
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// defaultStorageURL derives http://host/storage from http://host/api
func defaultStorageURL(backendURL string) string {
	u, err := url.Parse(backendURL)
	if err != nil || u.Host == "" {
		return "http://127.0.0.1:8000/storage"
	}
	u.Path = "/storage"
	u.RawQuery = ""
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
