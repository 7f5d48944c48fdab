// Package warehouse is the read-only data access layer over the
// PostgreSQL sales warehouse. Every query is parameterized, and raw
// results are cached process-wide for an hour keyed by query text plus
// bound parameters.
package warehouse

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"vendas/internal/config"
	"vendas/internal/core"
	applog "vendas/internal/log"
)

const (
	cacheTTL        = time.Hour
	cacheMaxEntries = 128
	cleanupInterval = 10 * time.Minute
)

// Repo executes the warehouse queries. A failed query is terminal for
// the render cycle that issued it: no retry, no partial result.
type Repo struct {
	pool    *pgxpool.Pool
	queries queries
	cache   *queryCache
	group   singleflight.Group
	logger  *applog.Logger

	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// New opens the connection pool and verifies it with a ping. The pool
// runs its own periodic health check to evict dead connections, which
// is the only liveness mechanism beyond the initial ping.
func New(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*Repo, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open warehouse pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	r := &Repo{
		pool:        pool,
		queries:     buildQueries(cfg.Schema, cfg.QuoteTable),
		cache:       newQueryCache(cacheMaxEntries, cacheTTL),
		logger:      logger.WithComponent(applog.ComponentWarehouse),
		stopCleanup: make(chan struct{}),
	}
	go r.startCacheCleanup()
	return r, nil
}

// Close stops the cache cleanup goroutine and closes the pool.
func (r *Repo) Close() {
	r.shutdownOnce.Do(func() {
		close(r.stopCleanup)
		r.pool.Close()
	})
}

// Ping reports whether the warehouse is reachable.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// ResetCache drops every cached query result.
func (r *Repo) ResetCache() {
	n := r.cache.Size()
	r.cache.Reset()
	r.logger.Info("query cache reset", "entries_dropped", n)
}

// dimPair is one raw row of the distinct-values query. Either side can
// be NULL in the warehouse.
type dimPair struct {
	State  *string
	Branch *string
}

// Dimensions returns the distinct states and branches known to the
// warehouse, NULLs dropped, sorted ascending.
func (r *Repo) Dimensions(ctx context.Context) (core.Dimensions, error) {
	pairs, err := cachedQuery(ctx, r, r.queries.dimensions, nil, func(rows pgx.Rows) (dimPair, error) {
		var p dimPair
		err := rows.Scan(&p.State, &p.Branch)
		return p, err
	})
	if err != nil {
		return core.Dimensions{}, err
	}

	states := make(map[string]struct{})
	branches := make(map[string]struct{})
	for _, p := range pairs {
		if p.State != nil {
			states[*p.State] = struct{}{}
		}
		if p.Branch != nil {
			branches[*p.Branch] = struct{}{}
		}
	}

	d := core.Dimensions{
		States:   sortedKeys(states),
		Branches: sortedKeys(branches),
	}
	return d, nil
}

// FactRows loads the filtered fact table, one row per quote line.
func (r *Repo) FactRows(ctx context.Context, f core.Filter) ([]core.FactRow, error) {
	return cachedQuery(ctx, r, r.queries.facts, filterArgs(f), scanFactRow)
}

// PredictionRows loads the filtered prediction dataset.
func (r *Repo) PredictionRows(ctx context.Context, f core.Filter) ([]core.PredictionRow, error) {
	return cachedQuery(ctx, r, r.queries.predictions, filterArgs(f), scanPredictionRow)
}

func scanFactRow(rows pgx.Rows) (core.FactRow, error) {
	var fr core.FactRow
	var taxID, name, city, state *string
	err := rows.Scan(
		&fr.QuoteNumber, &fr.EventDate, &fr.Branch, &fr.ProductCode, &fr.Product,
		&fr.GrossValue, &fr.Cost, &fr.Year, &fr.Month,
		&fr.OrderNumber, &fr.InvoiceNumber, &fr.OrderValue, &fr.InvoiceValue,
		&taxID, &name, &city, &state,
	)
	if err != nil {
		return fr, err
	}
	fr.CustomerTaxID = deref(taxID)
	fr.CustomerName = deref(name)
	fr.City = deref(city)
	fr.State = deref(state)
	return fr, nil
}

func scanPredictionRow(rows pgx.Rows) (core.PredictionRow, error) {
	var pr core.PredictionRow
	var taxID, name *string
	err := rows.Scan(
		&taxID, &name, &pr.GrossValue, &pr.Cost, &pr.Probability,
		&pr.Year, &pr.Month, &pr.State, &pr.Branch,
	)
	if err != nil {
		return pr, err
	}
	pr.CustomerTaxID = deref(taxID)
	pr.CustomerName = deref(name)
	return pr, nil
}

func filterArgs(f core.Filter) pgx.NamedArgs {
	return pgx.NamedArgs{
		"ano_ini": f.YearFrom,
		"ano_fim": f.YearTo,
		"meses":   f.Months,
		"estados": f.States,
		"filiais": f.Branches,
	}
}

// cachedQuery runs sqlText through the result cache, collapsing
// concurrent identical misses into a single warehouse round-trip.
// Results are cached whole under (query text, parameter values).
func cachedQuery[T any](ctx context.Context, r *Repo, sqlText string, args pgx.NamedArgs, scan func(pgx.Rows) (T, error)) ([]T, error) {
	return cachedFetch(ctx, r, cacheKey(sqlText, args), func(ctx context.Context) ([]T, error) {
		return fetchRows(ctx, r, sqlText, args, scan)
	})
}

// cachedFetch is the cache and collapse layer around fetch. The
// singleflight leader may be serving waiters whose own contexts are
// still live, so the fetch runs detached from the first caller's
// cancellation.
func cachedFetch[T any](ctx context.Context, r *Repo, key string, fetch func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := r.cache.Get(key); ok {
		r.logger.Debug("query cache hit", applog.FieldCacheKey, shortKey(key))
		return v.([]T), nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if v, ok := r.cache.Get(key); ok {
			return v, nil
		}

		start := time.Now()
		out, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		r.cache.Set(key, out)
		r.logger.Info("warehouse query executed",
			applog.FieldRows, len(out),
			applog.FieldDuration, time.Since(start).Milliseconds())
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func fetchRows[T any](ctx context.Context, r *Repo, sqlText string, args pgx.NamedArgs, scan func(pgx.Rows) (T, error)) ([]T, error) {
	var rows pgx.Rows
	var err error
	if len(args) > 0 {
		rows, err = r.pool.Query(ctx, sqlText, args)
	} else {
		rows, err = r.pool.Query(ctx, sqlText)
	}
	if err != nil {
		return nil, fmt.Errorf("warehouse query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse row: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse query: %w", err)
	}
	return out, nil
}

// cacheKey is the query text plus the JSON encoding of its parameters;
// map keys marshal sorted, so the encoding is deterministic.
func cacheKey(sqlText string, args pgx.NamedArgs) string {
	if len(args) == 0 {
		return sqlText
	}
	encoded, err := json.Marshal(map[string]any(args))
	if err != nil {
		// Unencodable parameters never reach this layer; fall back to
		// an uncacheable-looking key rather than failing the query.
		return sqlText + "\x00" + fmt.Sprintf("%v", args)
	}
	return sqlText + "\x00" + string(encoded)
}

func shortKey(key string) string {
	if len(key) > 40 {
		return key[:40]
	}
	return key
}

func (r *Repo) startCacheCleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := r.cache.CleanExpired(); cleaned > 0 {
				r.logger.Debug("cache cleanup completed", "entries_removed", cleaned)
			}
		case <-r.stopCleanup:
			return
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
