package warehouse

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

func TestQueryCache_GetSet(t *testing.T) {
	c := newQueryCache(10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set("k", []int{1, 2, 3})
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got := v.([]int); len(got) != 3 {
		t.Fatalf("cached value = %v, want [1 2 3]", got)
	}
}

func TestQueryCache_Expiry(t *testing.T) {
	c := newQueryCache(10, 10*time.Millisecond)
	c.Set("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after expiry")
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d, want 0 after expired read", c.Size())
	}
}

func TestQueryCache_LRUEviction(t *testing.T) {
	c := newQueryCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a retained")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c retained")
	}
}

func TestQueryCache_Reset(t *testing.T) {
	c := newQueryCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Reset()

	if c.Size() != 0 {
		t.Fatalf("Size = %d, want 0 after reset", c.Size())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after reset")
	}
}

func TestQueryCache_CleanExpired(t *testing.T) {
	c := newQueryCache(10, 10*time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("fresh", 3)

	if cleaned := c.CleanExpired(); cleaned != 2 {
		t.Fatalf("CleanExpired = %d, want 2", cleaned)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}
}

func TestCacheKey_Deterministic(t *testing.T) {
	a := pgx.NamedArgs{"estados": []string{"SP", "MG"}, "ano_ini": 2023}
	b := pgx.NamedArgs{"ano_ini": 2023, "estados": []string{"SP", "MG"}}

	if cacheKey("SELECT 1", a) != cacheKey("SELECT 1", b) {
		t.Fatal("same parameters in different map order must produce the same key")
	}

	c := pgx.NamedArgs{"ano_ini": 2024, "estados": []string{"SP", "MG"}}
	if cacheKey("SELECT 1", a) == cacheKey("SELECT 1", c) {
		t.Fatal("different parameter values must produce different keys")
	}
	if cacheKey("SELECT 1", a) == cacheKey("SELECT 2", a) {
		t.Fatal("different query text must produce different keys")
	}
}

func TestCacheKey_NoArgs(t *testing.T) {
	if cacheKey("SELECT 1", nil) != "SELECT 1" {
		t.Fatal("no-arg key should be the bare query text")
	}
}

func TestBuildQueries_Identifiers(t *testing.T) {
	q := buildQueries("csv", `"orçamentos_anon"`)

	if !strings.Contains(q.facts, `FROM csv."orçamentos_anon" o`) {
		t.Errorf("facts query missing quoted table reference:\n%s", q.facts)
	}
	if !strings.Contains(q.dimensions, `FROM csv."orçamentos_anon" o`) {
		t.Errorf("dimensions query missing quoted table reference:\n%s", q.dimensions)
	}
	if !strings.Contains(q.predictions, "FROM csv.df_resultado_exportado") {
		t.Errorf("predictions query missing table reference:\n%s", q.predictions)
	}
	for _, placeholder := range []string{"@ano_ini", "@ano_fim", "@meses", "@estados", "@filiais"} {
		if !strings.Contains(q.facts, placeholder) {
			t.Errorf("facts query missing placeholder %s", placeholder)
		}
		if !strings.Contains(q.predictions, placeholder) {
			t.Errorf("predictions query missing placeholder %s", placeholder)
		}
	}
}
