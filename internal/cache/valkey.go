package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nebari-dev/promptlib/internal/models"
	"github.com/valkey-io/valkey-go"
)

const valkeyKeyPrefix = "promptlib:libraries"

// ValkeyCache shares cached library lists between server replicas.
// Entries live under a generation-scoped key; Invalidate bumps the generation
// with a single INCR so every replica misses on its next read.
type ValkeyCache struct {
	client valkey.Client
	ttl    time.Duration
	genKey string
}

// NewValkeyCache connects to addr and verifies the connection with PING.
func NewValkeyCache(addr string, ttl time.Duration) (*ValkeyCache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Using Valkey library cache", "address", addr, "ttl", ttl)
	return newValkeyCache(client, ttl), nil
}

func newValkeyCache(client valkey.Client, ttl time.Duration) *ValkeyCache {
	return &ValkeyCache{
		client: client,
		ttl:    ttl,
		genKey: valkeyKeyPrefix + ":gen",
	}
}

// generation returns the current generation, "0" when the key was never set.
func (c *ValkeyCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Do(ctx, c.client.B().Get().Key(c.genKey).Build()).ToString()
	if valkey.IsValkeyNil(err) {
		return "0", nil
	}
	return gen, err
}

func (c *ValkeyCache) entryKey(gen string, workspaceID uint) string {
	return fmt.Sprintf("%s:%s:ws:%d", valkeyKeyPrefix, gen, workspaceID)
}

func (c *ValkeyCache) Get(ctx context.Context, workspaceID uint) ([]models.PromptLibrary, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		slog.Warn("Library cache generation lookup failed", "error", err)
		return nil, false
	}

	raw, err := c.client.Do(ctx, c.client.B().Get().Key(c.entryKey(gen, workspaceID)).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			slog.Warn("Library cache read failed", "workspace_id", workspaceID, "error", err)
		}
		return nil, false
	}

	var libs []models.PromptLibrary
	if err := json.Unmarshal([]byte(raw), &libs); err != nil {
		slog.Warn("Discarding undecodable library cache entry", "workspace_id", workspaceID, "error", err)
		return nil, false
	}
	return libs, true
}

func (c *ValkeyCache) Epoch(ctx context.Context) string {
	gen, err := c.generation(ctx)
	if err != nil {
		slog.Warn("Library cache generation lookup failed", "error", err)
		return ""
	}
	return gen
}

// Set writes under the generation the fill started in. After an INCR that
// key is never read again and simply expires.
func (c *ValkeyCache) Set(ctx context.Context, epoch string, workspaceID uint, libs []models.PromptLibrary) {
	if epoch == "" {
		return
	}

	data, err := json.Marshal(libs)
	if err != nil {
		slog.Warn("Failed to encode libraries for cache", "workspace_id", workspaceID, "error", err)
		return
	}

	secs := int64(c.ttl / time.Second)
	if secs < 1 {
		secs = 1
	}
	cmd := c.client.B().Set().Key(c.entryKey(epoch, workspaceID)).Value(string(data)).ExSeconds(secs).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		slog.Warn("Library cache write failed", "workspace_id", workspaceID, "error", err)
	}
}

func (c *ValkeyCache) Invalidate(ctx context.Context) {
	if err := c.client.Do(ctx, c.client.B().Incr().Key(c.genKey).Build()).Error(); err != nil {
		slog.Warn("Library cache invalidation failed", "error", err)
	}
}

func (c *ValkeyCache) Close() error {
	c.client.Close()
	return nil
}
