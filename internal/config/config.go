package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth; empty disables the bearer check
	APIKey string

	LogLevel string

	// File reads
	MaxReadBytes    int64
	ReadConcurrency int

	// Extraction API client
	HTTPTimeout      time.Duration
	RedirectMaxHops  int
	MaxResponseBytes int64
	UnitsUserAgent   string
	BrowserUserAgent string
	FetchASCIIOnly   bool
	Recoveries       []Recovery

	// Latency stats
	StatsWindow time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// Recovery mirrors remote.Recovery so config stays a leaf package.
type Recovery struct {
	HostContains string `yaml:"host_contains" json:"hostContains"`
	Marker       string `yaml:"marker" json:"marker"`
	From         string `yaml:"from" json:"from"`
	To           string `yaml:"to" json:"to"`
}

const (
	defaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127 Safari/537.36"
	defaultMaxReadBytes     = 512 * 1024
	defaultMaxResponseBytes = 32 << 20
)

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("RAGUTIL_API_KEY"),

		LogLevel: envOr("LOG_LEVEL", "info"),

		MaxReadBytes:    envInt64("MAX_READ_BYTES", defaultMaxReadBytes),
		ReadConcurrency: envInt("READ_CONCURRENCY", 4),

		HTTPTimeout:      envDuration("HTTP_TIMEOUT", 0),
		RedirectMaxHops:  envInt("REDIRECT_MAX_HOPS", 10),
		MaxResponseBytes: envInt64("MAX_RESPONSE_BYTES", defaultMaxResponseBytes),
		UnitsUserAgent:   envOr("UNITS_USER_AGENT", "rag-util/1.0"),
		BrowserUserAgent: envOr("BROWSER_USER_AGENT", defaultBrowserUserAgent),
		FetchASCIIOnly:   envBool("FETCH_ASCII_ONLY", false),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.MaxReadBytes <= 0 {
		c.MaxReadBytes = defaultMaxReadBytes
	}
	if c.ReadConcurrency <= 0 {
		c.ReadConcurrency = 4
	}
	if c.RedirectMaxHops <= 0 {
		c.RedirectMaxHops = 10
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = 1 * time.Hour
	}
	if c.HTTPTimeout < 0 {
		c.HTTPTimeout = 0
	}
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric: %q", c.Port)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error: %q", c.LogLevel)
	}
	for i, r := range c.Recoveries {
		if r.Marker == "" || r.From == "" {
			return fmt.Errorf("recoveries[%d]: marker and from are required", i)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envSet reports whether key was given a non-empty value.
func envSet(key string) bool {
	return os.Getenv(key) != ""
}
