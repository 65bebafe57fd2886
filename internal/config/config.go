package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anime-shed/stripreader/pkg/validation"
)

// Artifact store backends
const (
	ArtifactStoreNone  = "none"
	ArtifactStoreLocal = "local"
	ArtifactStoreAzure = "azure"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64
	MaxImagePixels     int64

	// Remote images
	ImageURLSchemes []string
	ImageURLHosts   []string

	// Analysis
	DefaultProfile string
	ProfileFile    string
	LocatorBackend string

	// Persistence
	DatabasePath   string
	ArtifactStore  string
	ArtifactDir    string
	AzureAccount   string
	AzureKey       string
	AzureContainer string

	LogLevel string
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		MaxImagePixels:     parseIntOrDefault("MAX_IMAGE_PIXELS", 40_000_000),
		ImageURLSchemes:    parseListOrDefault("IMAGE_URL_SCHEMES", []string{"http", "https"}),
		ImageURLHosts:      parseListOrDefault("IMAGE_URL_HOSTS", nil),
		DefaultProfile:     getEnvOrDefault("DEFAULT_PROFILE", "standard"),
		ProfileFile:        os.Getenv("PROFILE_FILE"),
		LocatorBackend:     getEnvOrDefault("LOCATOR_BACKEND", "native"),
		DatabasePath:       getEnvOrDefault("DATABASE_PATH", "stripreader.db"),
		ArtifactStore:      strings.ToLower(getEnvOrDefault("ARTIFACT_STORE", ArtifactStoreLocal)),
		ArtifactDir:        getEnvOrDefault("ARTIFACT_DIR", "uploads"),
		AzureAccount:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:     getEnvOrDefault("AZURE_STORAGE_CONTAINER", "strip-images"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field requirements
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be > 0 (got %d)", c.MaxImagePixels)
	}
	for _, scheme := range c.ImageURLSchemes {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("invalid IMAGE_URL_SCHEMES entry: %q (http or https)", scheme)
		}
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}

	switch c.ArtifactStore {
	case ArtifactStoreNone:
	case ArtifactStoreLocal:
		if strings.TrimSpace(c.ArtifactDir) == "" {
			return fmt.Errorf("ARTIFACT_DIR is required for the local artifact store")
		}
	case ArtifactStoreAzure:
		if c.AzureAccount == "" || c.AzureKey == "" {
			return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY are required for the azure artifact store")
		}
	default:
		return fmt.Errorf("invalid ARTIFACT_STORE: %q", c.ArtifactStore)
	}
	return nil
}

// URLPolicy returns the rules remote image URLs are checked against
func (c *Config) URLPolicy() validation.URLPolicy {
	return validation.URLPolicy{Schemes: c.ImageURLSchemes, Hosts: c.ImageURLHosts}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// parseListOrDefault splits a comma separated value, lowercasing entries and
// dropping blanks
func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}
