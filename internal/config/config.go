package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vincentbai/pageview-bridge/internal/analytics"
)

const (
	BackendLocal       = "local"
	BackendMeasurement = "measurement"
	BackendLog         = "log"
	BackendNoop        = "noop"
)

// Config holds all configuration for the pageview bridge agent.
type Config struct {
	Address string
	DataDir string

	// Analytics clients to forward to, in order.
	Backends []string

	// Measurement Protocol settings
	TrackingID     string
	ClientID       string
	CollectURL     string
	CollectTimeout time.Duration

	// Page events allowed to wait for delivery before new ones are dropped.
	QueueSize int

	// Directory holding the built page application; empty disables hosting.
	StaticDir string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	dataDir := os.Getenv("PAGEBRIDGE_DATA_DIR")
	if dataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = dir
	}

	cfg := &Config{
		Address:        getEnvOrDefault("PAGEBRIDGE_ADDRESS", "127.0.0.1:8123"),
		DataDir:        dataDir,
		Backends:       splitList(getEnvOrDefault("PAGEBRIDGE_BACKENDS", BackendLocal)),
		TrackingID:     os.Getenv("PAGEBRIDGE_TRACKING_ID"),
		ClientID:       os.Getenv("PAGEBRIDGE_CLIENT_ID"),
		CollectURL:     getEnvOrDefault("PAGEBRIDGE_COLLECT_URL", analytics.DefaultCollectURL),
		CollectTimeout: time.Duration(getEnvIntOrDefault("PAGEBRIDGE_COLLECT_TIMEOUT_MS", 5000)) * time.Millisecond,
		QueueSize:      getEnvIntOrDefault("PAGEBRIDGE_QUEUE_SIZE", 1024),
		StaticDir:      os.Getenv("PAGEBRIDGE_STATIC_DIR"),
		LogLevel:       getEnvOrDefault("PAGEBRIDGE_LOG_LEVEL", "info"),
		LogFile:        os.Getenv("PAGEBRIDGE_LOG_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.QueueSize < 0 {
		return fmt.Errorf("queue size must not be negative")
	}
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one analytics backend is required")
	}
	for _, backend := range c.Backends {
		switch backend {
		case BackendLocal, BackendLog, BackendNoop:
		case BackendMeasurement:
			if c.TrackingID == "" {
				return fmt.Errorf("backend %q requires PAGEBRIDGE_TRACKING_ID", backend)
			}
		default:
			return fmt.Errorf("unknown analytics backend %q", backend)
		}
	}
	return nil
}

func (c *Config) HasBackend(name string) bool {
	for _, backend := range c.Backends {
		if backend == name {
			return true
		}
	}
	return false
}

func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pageviews.db")
}

// DefaultDataDir returns the platform-specific application data directory.
func DefaultDataDir() (string, error) {
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "PageviewBridge"), nil
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "PageviewBridge"), nil
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "PageviewBridge"), nil
	}
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
