package template

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kursadbilgin/faultline/internal/domain"
	"github.com/kursadbilgin/faultline/internal/observability"
	"go.uber.org/zap"
)

// Loader reads every stored template in one call.
type Loader interface {
	LoadAllTemplates(ctx context.Context) ([]domain.Template, error)
}

// Cache holds notification templates for the life of the process. It is
// populated lazily on first use and never refreshed. A failed load leaves the
// cache empty so the next lookup tries again.
type Cache struct {
	loader  Loader
	metrics *observability.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	loaded  atomic.Bool
	entries atomic.Pointer[map[string]string]
}

func NewCache(loader Loader, metrics *observability.Metrics, logger *zap.Logger) (*Cache, error) {
	if loader == nil {
		return nil, fmt.Errorf("template loader is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		loader:  loader,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Get returns the body stored under id.
func (c *Cache) Get(ctx context.Context, id string) (string, bool) {
	if c == nil {
		return "", false
	}

	if !c.loaded.Load() {
		c.load(ctx)
	}

	entries := c.entries.Load()
	if entries == nil {
		return "", false
	}

	body, ok := (*entries)[strings.TrimSpace(id)]
	return body, ok
}

func (c *Cache) Loaded() bool {
	return c != nil && c.loaded.Load()
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	entries := c.entries.Load()
	if entries == nil {
		return 0
	}
	return len(*entries)
}

func (c *Cache) load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded.Load() {
		return
	}

	templates, err := c.loader.LoadAllTemplates(ctx)
	if err != nil {
		c.metrics.IncTemplateCacheLoad(false)
		observability.WithContextLogger(c.logger, ctx).Warn("failed to load notification templates",
			zap.String("stage", domain.StageLoadTemplate.String()),
			zap.Error(err),
		)
		return
	}

	entries := make(map[string]string, len(templates))
	dropped := 0
	for _, t := range templates {
		if !t.Usable() {
			dropped++
			continue
		}
		entries[strings.TrimSpace(t.ID)] = t.Body
	}

	c.entries.Store(&entries)
	c.loaded.Store(true)
	c.metrics.IncTemplateCacheLoad(true)

	c.logger.Info("notification templates loaded",
		zap.Int("count", len(entries)),
		zap.Int("dropped", dropped),
	)
}
