package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML or JSON config file. Environment variables
// take precedence over anything set here.
type FileConfig struct {
	Port     string `yaml:"port" json:"port"`
	LogLevel string `yaml:"log_level" json:"logLevel"`

	Read struct {
		MaxBytes    int64 `yaml:"max_bytes" json:"maxBytes"`
		Concurrency int   `yaml:"concurrency" json:"concurrency"`
	} `yaml:"read" json:"read"`

	Remote struct {
		Timeout          time.Duration `yaml:"timeout" json:"timeout"`
		RedirectMaxHops  int           `yaml:"redirect_max_hops" json:"redirectMaxHops"`
		MaxResponseBytes int64         `yaml:"max_response_bytes" json:"maxResponseBytes"`
		UnitsUserAgent   string        `yaml:"units_user_agent" json:"unitsUserAgent"`
		BrowserUserAgent string        `yaml:"browser_user_agent" json:"browserUserAgent"`
		FetchASCIIOnly   *bool         `yaml:"fetch_ascii_only" json:"fetchAsciiOnly"`
		StatsWindow      time.Duration `yaml:"stats_window" json:"statsWindow"`
	} `yaml:"remote" json:"remote"`

	Recoveries []Recovery `yaml:"recoveries" json:"recoveries"`

	PDFFallbackPdftotext *bool `yaml:"pdf_fallback_pdftotext" json:"pdfFallbackPdftotext"`
}

// LoadFile reads YAML or JSON into FileConfig.
func LoadFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFile overlays file values onto cfg for every setting whose
// environment variable is unset. The recoveries list exists only in the file.
func ApplyFile(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if !envSet("PORT") && fc.Port != "" {
		cfg.Port = fc.Port
	}
	if !envSet("LOG_LEVEL") && fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if !envSet("MAX_READ_BYTES") && fc.Read.MaxBytes > 0 {
		cfg.MaxReadBytes = fc.Read.MaxBytes
	}
	if !envSet("READ_CONCURRENCY") && fc.Read.Concurrency > 0 {
		cfg.ReadConcurrency = fc.Read.Concurrency
	}
	if !envSet("HTTP_TIMEOUT") && fc.Remote.Timeout > 0 {
		cfg.HTTPTimeout = fc.Remote.Timeout
	}
	if !envSet("REDIRECT_MAX_HOPS") && fc.Remote.RedirectMaxHops > 0 {
		cfg.RedirectMaxHops = fc.Remote.RedirectMaxHops
	}
	if !envSet("MAX_RESPONSE_BYTES") && fc.Remote.MaxResponseBytes > 0 {
		cfg.MaxResponseBytes = fc.Remote.MaxResponseBytes
	}
	if !envSet("UNITS_USER_AGENT") && fc.Remote.UnitsUserAgent != "" {
		cfg.UnitsUserAgent = fc.Remote.UnitsUserAgent
	}
	if !envSet("BROWSER_USER_AGENT") && fc.Remote.BrowserUserAgent != "" {
		cfg.BrowserUserAgent = fc.Remote.BrowserUserAgent
	}
	if !envSet("FETCH_ASCII_ONLY") && fc.Remote.FetchASCIIOnly != nil {
		cfg.FetchASCIIOnly = *fc.Remote.FetchASCIIOnly
	}
	if !envSet("STATS_WINDOW") && fc.Remote.StatsWindow > 0 {
		cfg.StatsWindow = fc.Remote.StatsWindow
	}
	if !envSet("PDF_FALLBACK_PDFTOTEXT") && fc.PDFFallbackPdftotext != nil {
		cfg.PDFFallbackPdftotext = *fc.PDFFallbackPdftotext
	}
	if len(fc.Recoveries) > 0 {
		cfg.Recoveries = append([]Recovery{}, fc.Recoveries...)
	}
}
