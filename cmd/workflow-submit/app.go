// cmd/workflow-submit/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"workflow-submit/internal/catalog"
	"workflow-submit/internal/common/cache"
	"workflow-submit/internal/common/config"
	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/common/observability"
	"workflow-submit/internal/orchestrator"
	"workflow-submit/pkg/registry"
)

// app holds everything built from the configuration.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	obs     *observability.Observability
	client  *catalog.Client
	catalog orchestrator.Catalog
	cache   *cache.RedisClient
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
	})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel exporter unavailable", map[string]interface{}{"error": err.Error()})
	}

	catCfg := catalog.LoadConfig(cfg.Catalog)
	if cfg.Catalog.RegistryPath != "" {
		reg, err := registry.LoadRegistry(cfg.Catalog.RegistryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog registry: %w", err)
		}
		if err := reg.Check(); err != nil {
			return nil, fmt.Errorf("invalid catalog registry %s: %w", cfg.Catalog.RegistryPath, err)
		}
		catCfg.Registry = reg
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		obs:    obs,
		client: catalog.NewClient(catCfg, log),
	}
	a.catalog = a.client

	if cfg.Cache.Enabled {
		store := cache.NewRedis(cfg.Cache)
		err := retryWithBackoff(func() error {
			return store.Ping(ctx)
		}, 3, 500*time.Millisecond, log, "Redis connection")
		if err != nil {
			// Listings are only an optimization; run uncached.
			log.Warn("template cache disabled", map[string]interface{}{"error": err.Error()})
			_ = store.Close()
		} else {
			a.cache = store
			a.catalog = catalog.NewCachedCatalog(a.client, store, log)
		}
	}
	return a, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func (a *app) orchestratorConfig() *orchestrator.Config {
	return orchestrator.LoadConfig(a.cfg.Submission)
}

func (a *app) close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	a.obs.Shutdown()
}

// retryWithBackoff runs operation up to maxRetries times, doubling the delay
// after each failure.
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
