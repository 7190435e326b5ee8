package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nebari-dev/promptlib/internal/config"
	"github.com/nebari-dev/promptlib/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLibs(ids ...uint) []models.PromptLibrary {
	libs := make([]models.PromptLibrary, 0, len(ids))
	for _, id := range ids {
		libs = append(libs, models.PromptLibrary{ID: id, Name: "lib", Template: "{{x}}", Enabled: true})
	}
	return libs
}

func TestNew_SelectsImplementation(t *testing.T) {
	c, err := New(config.CacheConfig{Type: "none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(Noop); !ok {
		t.Errorf("expected Noop, got %T", c)
	}

	c, err = New(config.CacheConfig{Type: "memory", TTLSeconds: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("expected *MemoryCache, got %T", c)
	}
	c.Close()

	if _, err := New(config.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}

func TestNoop_AlwaysMisses(t *testing.T) {
	var c Noop
	c.Set(context.Background(), c.Epoch(context.Background()), 1, testLibs(1))
	if _, ok := c.Get(context.Background(), 1); ok {
		t.Error("Noop must never hit")
	}
}

func TestMemoryCache_SetGetInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Hour)
	defer c.Close()

	if _, ok := c.Get(ctx, 1); ok {
		t.Fatal("expected miss on empty cache")
	}

	epoch := c.Epoch(ctx)
	c.Set(ctx, epoch, 1, testLibs(1, 2))
	c.Set(ctx, epoch, 2, testLibs(3))

	got, ok := c.Get(ctx, 1)
	if !ok {
		t.Fatal("expected hit")
	}
	if diff := cmp.Diff(testLibs(1, 2), got); diff != "" {
		t.Errorf("cached libraries mismatch (-want +got):\n%s", diff)
	}

	// Mutating the returned slice must not affect the cache
	got[0].Name = "changed"
	again, _ := c.Get(ctx, 1)
	if again[0].Name != "lib" {
		t.Error("cache entry was mutated through returned slice")
	}

	c.Invalidate(ctx)
	if _, ok := c.Get(ctx, 1); ok {
		t.Error("expected miss after invalidate")
	}
	if _, ok := c.Get(ctx, 2); ok {
		t.Error("expected miss for every workspace after invalidate")
	}
}

func TestMemoryCache_DropsSetFromStaleEpoch(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Hour)
	defer c.Close()

	before := c.Epoch(ctx)
	c.Invalidate(ctx)
	c.Set(ctx, before, 1, testLibs(1))
	if _, ok := c.Get(ctx, 1); ok {
		t.Error("entry loaded before Invalidate must not be stored")
	}

	after := c.Epoch(ctx)
	if after == before {
		t.Fatal("expected Invalidate to advance the epoch")
	}
	c.Set(ctx, after, 1, testLibs(1))
	if _, ok := c.Get(ctx, 1); !ok {
		t.Error("expected hit for current epoch")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Hour)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, c.Epoch(ctx), 1, testLibs(1))
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, 1); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Len() != 1 {
		t.Fatalf("expected expired entry to remain until swept, got %d", c.Len())
	}
	c.sweep()
	if c.Len() != 0 {
		t.Errorf("expected sweep to drop expired entry, got %d", c.Len())
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Millisecond)
	defer c.Close()

	var wg sync.WaitGroup
	for i := uint(0); i < 8; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(ctx, c.Epoch(ctx), id, testLibs(id))
				c.Get(ctx, id)
				if j%25 == 0 {
					c.Invalidate(ctx)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Millisecond)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}
