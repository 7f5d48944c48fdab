package warehouse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	applog "vendas/internal/log"
)

func testRepo() *Repo {
	return &Repo{
		cache:  newQueryCache(cacheMaxEntries, cacheTTL),
		logger: applog.New(slog.LevelError, "test"),
	}
}

func TestCachedFetch_DetachedFromCallerCancel(t *testing.T) {
	r := testRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := cachedFetch(ctx, r, "facts", func(ctx context.Context) ([]int, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []int{1, 2}, nil
	})
	if err != nil {
		t.Fatalf("cachedFetch with canceled caller: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %v, want 2 entries", got)
	}
	if _, ok := r.cache.Get("facts"); !ok {
		t.Error("result of detached fetch not cached")
	}
}

func TestCachedFetch_SingleFetchAcrossCallers(t *testing.T) {
	r := testRepo()
	var calls atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cachedFetch(context.Background(), r, "dims", func(context.Context) ([]string, error) {
				calls.Add(1)
				return []string{"MG"}, nil
			})
			if err != nil {
				t.Errorf("cachedFetch: %v", err)
				return
			}
			if len(got) != 1 || got[0] != "MG" {
				t.Errorf("rows = %v, want [MG]", got)
			}
		}()
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch executed %d times, want 1", n)
	}
}

func TestCachedFetch_ErrorNotCached(t *testing.T) {
	r := testRepo()
	boom := errors.New("connection refused")

	if _, err := cachedFetch(context.Background(), r, "facts", func(context.Context) ([]int, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok := r.cache.Get("facts"); ok {
		t.Error("failed fetch left an entry in the cache")
	}
}
