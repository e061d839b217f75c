package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericbreyer/liturgy/internal/liturgy"
)

// CachedCatalog caches the backend's calendar catalog. The catalog
// changes rarely, so it is fetched once and refreshed on a schedule
// rather than per request.
type CachedCatalog struct {
	client *Client
	logger *slog.Logger

	mu        sync.RWMutex
	systems   []liturgy.CalendarSystem
	fetchedAt time.Time
}

// NewCachedCatalog wraps client's catalog endpoint with a cache.
func NewCachedCatalog(client *Client, logger *slog.Logger) *CachedCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedCatalog{client: client, logger: logger}
}

// ListCalendars returns the cached catalog, fetching it on first use.
func (cc *CachedCatalog) ListCalendars(ctx context.Context) ([]liturgy.CalendarSystem, error) {
	cc.mu.RLock()
	systems := cc.systems
	cc.mu.RUnlock()
	if systems != nil {
		return systems, nil
	}
	if err := cc.Refresh(ctx); err != nil {
		return nil, err
	}

	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.systems, nil
}

// Refresh re-fetches the catalog. On failure the previous cache is
// kept.
func (cc *CachedCatalog) Refresh(ctx context.Context) error {
	systems, err := cc.client.ListCalendars(ctx)
	if err != nil {
		cc.logger.Warn("catalog refresh failed", slog.Any("error", err))
		return err
	}

	cc.mu.Lock()
	cc.systems = systems
	cc.fetchedAt = time.Now()
	cc.mu.Unlock()

	cc.logger.Info("catalog refreshed", slog.Int("calendars", len(systems)))
	return nil
}

// FetchedAt reports when the cache was last filled; zero if never.
func (cc *CachedCatalog) FetchedAt() time.Time {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.fetchedAt
}
