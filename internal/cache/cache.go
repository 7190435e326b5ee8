// Package cache stores the libraries accessible to each workspace so the
// hot read path does not hit the database on every request.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/models"
)

// Cache holds accessible-library lists keyed by workspace id.
// Get reports a miss on any backend failure; callers fall back to the database.
//
// A fill takes an Epoch before loading from the database and passes it to
// Set. If Invalidate ran in between, the epoch is stale and Set stores
// nothing, so a list read before an admin write never outlives that write.
type Cache interface {
	Get(ctx context.Context, workspaceID uint) ([]models.PromptLibrary, bool)
	// Epoch returns the current generation token; "" means do not store.
	Epoch(ctx context.Context) string
	Set(ctx context.Context, epoch string, workspaceID uint, libs []models.PromptLibrary)
	// Invalidate drops every workspace entry at once.
	Invalidate(ctx context.Context)
	Close() error
}

// New builds the cache selected by cfg.Type.
func New(cfg config.CacheConfig) (Cache, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	switch cfg.Type {
	case "", "none":
		slog.Info("Library cache disabled")
		return Noop{}, nil
	case "memory":
		slog.Info("Using in-memory library cache", "ttl", ttl)
		return NewMemoryCache(ttl, ttl), nil
	case "valkey":
		return NewValkeyCache(cfg.ValkeyAddr, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, uint) ([]models.PromptLibrary, bool)  { return nil, false }
func (Noop) Epoch(context.Context) string                              { return "" }
func (Noop) Set(context.Context, string, uint, []models.PromptLibrary) {}
func (Noop) Invalidate(context.Context)                                {}
func (Noop) Close() error                                              { return nil }
