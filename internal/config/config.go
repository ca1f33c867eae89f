package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"trolleymatch/internal/errors"
)

// DefaultRowCap is the ceiling applied to every run, "All" included
const DefaultRowCap = 100

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Run     RunConfig
	Scraper ScraperConfig
	Log     LogConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Host        string
	Port        string
	GinMode     string
	MaxUploadMB int64
}

// Addr returns the host:port the server listens on
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// MaxUploadBytes returns the upload size limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB * 1024 * 1024
}

// StorageConfig holds file system paths for temporary files
type StorageConfig struct {
	UploadDir  string
	ResultsDir string
	FileTTL    time.Duration
}

// RunConfig holds row processing settings
type RunConfig struct {
	RowCap int
}

// ScraperConfig holds settings for the Trolley search client
type ScraperConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	SelectorsFile string
	UserAgent     string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:        getEnvOrDefault("HOST", "0.0.0.0"),
			Port:        getEnvOrDefault("PORT", "5000"),
			GinMode:     getEnvOrDefault("GIN_MODE", "release"),
			MaxUploadMB: int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 50)),
		},
		Storage: StorageConfig{
			UploadDir:  getEnvOrDefault("UPLOAD_DIR", "./uploads"),
			ResultsDir: getEnvOrDefault("RESULTS_DIR", "./results"),
			FileTTL:    getEnvDurationOrDefault("FILE_TTL", 24*time.Hour),
		},
		Run: RunConfig{
			RowCap: getEnvIntOrDefault("ROW_CAP", DefaultRowCap),
		},
		Scraper: ScraperConfig{
			BaseURL:       strings.TrimRight(getEnvOrDefault("SCRAPER_BASE_URL", "https://www.trolley.co.uk"), "/"),
			Timeout:       getEnvDurationOrDefault("SCRAPER_TIMEOUT", 15*time.Second),
			MaxRetries:    getEnvIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			RetryBackoff:  getEnvDurationOrDefault("SCRAPER_RETRY_BACKOFF", 2*time.Second),
			SelectorsFile: getEnvOrDefault("SCRAPER_SELECTORS_FILE", ""),
			UserAgent: getEnvOrDefault("SCRAPER_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "INFO"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid("PORT must be numeric")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid("GIN_MODE must be one of debug, release, test")
	}
	if config.Server.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if config.Run.RowCap < 1 || config.Run.RowCap > DefaultRowCap {
		return errors.ConfigInvalid("ROW_CAP must be between 1 and 100")
	}
	if config.Storage.UploadDir == "" || config.Storage.ResultsDir == "" {
		return errors.ConfigInvalid("UPLOAD_DIR and RESULTS_DIR are required")
	}
	if config.Storage.FileTTL <= 0 {
		return errors.ConfigInvalid("FILE_TTL must be positive")
	}
	if !strings.HasPrefix(config.Scraper.BaseURL, "http://") && !strings.HasPrefix(config.Scraper.BaseURL, "https://") {
		return errors.ConfigInvalid("SCRAPER_BASE_URL must be an http(s) URL")
	}
	if config.Scraper.MaxRetries < 1 {
		return errors.ConfigInvalid("SCRAPER_MAX_RETRIES must be at least 1")
	}
	if config.Scraper.Timeout <= 0 {
		return errors.ConfigInvalid("SCRAPER_TIMEOUT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
