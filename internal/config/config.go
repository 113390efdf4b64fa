package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Browser BrowserConfig
	Output  OutputConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	DefaultURL        string
	LinkOrigin        string
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	ActionTimeout     time.Duration
	ExpandDelay       time.Duration
	MaxExpandClicks   int
	MaxExpandDuration time.Duration
}

type BrowserConfig struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	ProxyServer    string
}

type OutputConfig struct {
	Path string
}

// RedisConfig enables update events when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8000"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			DefaultURL:        getEnvOrDefault("SCRAPER_DEFAULT_URL", "https://scholar.google.com/citations?user=-TXOxzIAAAAJ&hl=en"),
			LinkOrigin:        getEnvOrDefault("SCRAPER_LINK_ORIGIN", "https://scholar.google.com"),
			NavigationTimeout: getDurationOrDefault("SCRAPER_NAVIGATION_TIMEOUT", 60*time.Second),
			ReadyTimeout:      getDurationOrDefault("SCRAPER_READY_TIMEOUT", 30*time.Second),
			ActionTimeout:     getDurationOrDefault("SCRAPER_ACTION_TIMEOUT", 30*time.Second),
			ExpandDelay:       getDurationOrDefault("SCRAPER_EXPAND_DELAY", 1500*time.Millisecond),
			MaxExpandClicks:   getIntOrDefault("SCRAPER_MAX_EXPAND_CLICKS", 100),
			MaxExpandDuration: getDurationOrDefault("SCRAPER_MAX_EXPAND_DURATION", 3*time.Minute),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1280),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 800),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-US"),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Output: OutputConfig{
			Path: getEnvOrDefault("OUTPUT_PATH", "scholar_papers.csv"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:scholar_publications"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	if c.Output.Path == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}

	if c.Scraper.DefaultURL == "" {
		return fmt.Errorf("SCRAPER_DEFAULT_URL is required")
	}

	if c.Scraper.NavigationTimeout <= 0 || c.Scraper.ReadyTimeout <= 0 {
		return fmt.Errorf("SCRAPER_NAVIGATION_TIMEOUT and SCRAPER_READY_TIMEOUT must be positive")
	}

	if c.Scraper.MaxExpandClicks < 0 {
		return fmt.Errorf("SCRAPER_MAX_EXPAND_CLICKS cannot be negative")
	}

	if c.Browser.ViewportWidth < 1 || c.Browser.ViewportHeight < 1 {
		return fmt.Errorf("browser viewport must be at least 1x1")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}

	return nil
}

// Addr is the listen address of the HTTP server.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
