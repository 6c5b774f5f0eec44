package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Submission SubmissionConfig `mapstructure:"submission"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// CatalogConfig points at the backend that serves workflow templates and
// accepts executions.
type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
	// RegistryPath optionally overrides endpoint definitions.
	RegistryPath string `mapstructure:"registry_path"`
}

// SubmissionConfig tunes the confirmation policy.
type SubmissionConfig struct {
	SmallDatasetThreshold int `mapstructure:"small_dataset_threshold"`
}

// CacheConfig configures the optional Redis cache for template listings.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

// GetTTL returns the listing TTL as a duration.
func (c CacheConfig) GetTTL() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// String hides the catalog token.
func (c CatalogConfig) String() string {
	token := ""
	if c.Token != "" {
		token = "***"
	}
	return fmt.Sprintf("catalog{base_url=%s token=%s timeout=%dms}", c.BaseURL, token, c.Timeout)
}
