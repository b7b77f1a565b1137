package template

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kursadbilgin/faultline/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLoader struct {
	calls  atomic.Int32
	loadFn func(ctx context.Context) ([]domain.Template, error)
}

func (f *fakeLoader) LoadAllTemplates(ctx context.Context) ([]domain.Template, error) {
	f.calls.Add(1)
	return f.loadFn(ctx)
}

func TestCacheGetLoadsOnceUnderConcurrency(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	loader := &fakeLoader{loadFn: func(ctx context.Context) ([]domain.Template, error) {
		<-release
		return []domain.Template{{ID: "T1", Body: "Error in APP_NAME"}}, nil
	}}
	cache := newTestCache(t, loader, nil)

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, _ := cache.Get(context.Background(), "T1")
			results <- body
		}()
	}
	close(release)
	wg.Wait()
	close(results)

	for body := range results {
		if body != "Error in APP_NAME" {
			t.Fatalf("Get() body = %q, want template body", body)
		}
	}
	if got := loader.calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1", got)
	}
	if !cache.Loaded() {
		t.Fatal("cache should report loaded")
	}
}

func TestCacheDropsUnusableRows(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{loadFn: func(ctx context.Context) ([]domain.Template, error) {
		return []domain.Template{
			{ID: "T1", Body: "body"},
			{ID: "T2", Body: ""},
			{ID: "T3", Body: "na"},
			{ID: "NA", Body: "body"},
			{ID: "  ", Body: "body"},
		}, nil
	}}
	cache := newTestCache(t, loader, nil)

	if _, ok := cache.Get(context.Background(), "T1"); !ok {
		t.Fatal("T1 should be cached")
	}
	for _, id := range []string{"T2", "T3", "NA"} {
		if _, ok := cache.Get(context.Background(), id); ok {
			t.Fatalf("%s should have been dropped", id)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", cache.Len())
	}
	if _, ok := cache.Get(context.Background(), "UNKNOWN"); ok {
		t.Fatal("unknown id should miss")
	}
}

func TestCacheRetriesAfterFailedLoad(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	fail := true
	loader := &fakeLoader{loadFn: func(ctx context.Context) ([]domain.Template, error) {
		if fail {
			return nil, errors.New("db down")
		}
		return []domain.Template{{ID: "T1", Body: "body"}}, nil
	}}
	cache := newTestCache(t, loader, zap.New(core))

	if _, ok := cache.Get(context.Background(), "T1"); ok {
		t.Fatal("failed load must miss")
	}
	if cache.Loaded() {
		t.Fatal("failed load must not mark the cache loaded")
	}
	if logs.FilterMessage("failed to load notification templates").Len() != 1 {
		t.Fatal("expected load failure to be logged")
	}

	fail = false
	if body, ok := cache.Get(context.Background(), "T1"); !ok || body != "body" {
		t.Fatalf("Get() after recovery = %q, %v", body, ok)
	}
	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loader calls = %d, want 2", got)
	}

	cache.Get(context.Background(), "T1")
	if got := loader.calls.Load(); got != 2 {
		t.Fatalf("loaded cache must not reload, calls = %d", got)
	}
}

func TestNilCache(t *testing.T) {
	t.Parallel()

	var cache *Cache
	if _, ok := cache.Get(context.Background(), "T1"); ok {
		t.Fatal("nil cache must miss")
	}
	if cache.Loaded() || cache.Len() != 0 {
		t.Fatal("nil cache must report empty")
	}
	if _, err := NewCache(nil, nil, nil); err == nil {
		t.Fatal("expected error for nil loader")
	}
}

func newTestCache(t *testing.T, loader Loader, logger *zap.Logger) *Cache {
	t.Helper()
	cache, err := NewCache(loader, nil, logger)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	return cache
}
