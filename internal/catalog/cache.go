// internal/catalog/cache.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"workflow-submit/internal/common/cache"
	"workflow-submit/internal/common/logger"
	"workflow-submit/internal/common/metrics"
)

// Lister lists workflow templates.
type Lister interface {
	ListTemplates(ctx context.Context) ([]Template, error)
}

// CachedLister serves template listings from Redis. Schemas are never
// cached. Cache failures are logged and fall through to the backend.
type CachedLister struct {
	next   Lister
	cache  *cache.RedisClient
	key    string
	logger logger.Logger
}

func NewCachedLister(next Lister, store *cache.RedisClient, baseURL string, log logger.Logger) *CachedLister {
	return &CachedLister{
		next:  next,
		cache: store,
		key:   "catalog:templates:" + baseURL,
		logger: log.WithFields(map[string]interface{}{
			"component": "catalog-cache",
		}),
	}
}

func (l *CachedLister) ListTemplates(ctx context.Context) ([]Template, error) {
	if data, err := l.cache.Get(ctx, l.key); err == nil {
		var templates []Template
		if err := json.Unmarshal(data, &templates); err == nil {
			metrics.CatalogCacheLookups.WithLabelValues("hit").Inc()
			return templates, nil
		}
		l.logger.Warn("discarding unreadable cached listing", map[string]interface{}{"key": l.key})
	} else if !errors.Is(err, cache.ErrMiss) {
		metrics.CatalogCacheLookups.WithLabelValues("error").Inc()
		l.logger.Warn("template cache read failed", map[string]interface{}{
			"key":   l.key,
			"error": err.Error(),
		})
	} else {
		metrics.CatalogCacheLookups.WithLabelValues("miss").Inc()
	}

	templates, err := l.next.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(templates)
	if err == nil {
		err = l.cache.SetDefault(ctx, l.key, data)
	}
	if err != nil {
		l.logger.Warn("template cache write failed", map[string]interface{}{
			"key":   l.key,
			"error": err.Error(),
		})
	}
	return templates, nil
}

// Invalidate drops the cached listing.
func (l *CachedLister) Invalidate(ctx context.Context) error {
	return l.cache.Del(ctx, l.key)
}

// CachedCatalog is a Client whose template listing goes through a
// CachedLister. All other operations hit the backend.
type CachedCatalog struct {
	*Client
	Listings *CachedLister
}

func NewCachedCatalog(client *Client, store *cache.RedisClient, log logger.Logger) *CachedCatalog {
	return &CachedCatalog{
		Client:   client,
		Listings: NewCachedLister(client, store, client.config.BaseURL, log),
	}
}

func (c *CachedCatalog) ListTemplates(ctx context.Context) ([]Template, error) {
	return c.Listings.ListTemplates(ctx)
}
