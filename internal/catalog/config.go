// internal/catalog/config.go
package catalog

import (
	"time"

	"workflow-submit/internal/common/config"
	"workflow-submit/pkg/registry"
)

type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	Registry *registry.OperationRegistry
}

// LoadConfig builds the client config from the catalog section.
func LoadConfig(cfg config.CatalogConfig) *Config {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		BaseURL:  cfg.BaseURL,
		Token:    cfg.Token,
		Timeout:  timeout,
		Registry: registry.Default(),
	}
}
