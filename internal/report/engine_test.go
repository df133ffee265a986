package report

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/domain"
)

// mapCache is a plain in-process ReportCache for engine tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]domain.DashboardReport
	sets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]domain.DashboardReport)}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.DashboardReport, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	report, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &report, true, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.DashboardReport, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = *value
	c.sets++
	return nil
}

func testInput(version uint64) BuildInput {
	now := time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	return BuildInput{
		Query:    domain.SalesQuery{Period: domain.PeriodAll},
		Now:      now,
		Sales:    []domain.Sale{saleAt("SALE-A", now, chips(10))},
		Items:    []domain.InventoryItem{{ID: "item-1", Name: "Potato Chips", CostPrice: dec("0.75")}},
		Expenses: decimal.Zero,
		Version:  version,
	}
}

func TestEngineBuildComputesReport(t *testing.T) {
	engine := NewEngine(nil, 0)

	report := engine.Build(context.Background(), testInput(1))
	if report.SaleCount != 1 {
		t.Fatalf("expected 1 sale, got %d", report.SaleCount)
	}
	if !report.GrossSales.Equal(dec("15.00")) {
		t.Fatalf("expected gross 15.00, got %s", report.GrossSales)
	}
	if len(report.ProfitPerItem) != 1 || len(report.SalesOverTime) != 1 {
		t.Fatalf("expected populated ranking and series, got %+v", report)
	}
}

func TestEngineCachesPerVersion(t *testing.T) {
	cacheStore := newMapCache()
	engine := NewEngine(cacheStore, time.Minute)
	ctx := context.Background()

	engine.Build(ctx, testInput(1))
	engine.Build(ctx, testInput(1))
	if cacheStore.sets != 1 {
		t.Fatalf("expected single cache fill for same version, got %d", cacheStore.sets)
	}

	// A store mutation changes the version and must miss the cache.
	engine.Build(ctx, testInput(2))
	if cacheStore.sets != 2 {
		t.Fatalf("expected second cache fill after version bump, got %d", cacheStore.sets)
	}
}

func TestEngineCacheKeyVariesWithQuery(t *testing.T) {
	cacheStore := newMapCache()
	engine := NewEngine(cacheStore, time.Minute)
	ctx := context.Background()

	in := testInput(1)
	engine.Build(ctx, in)

	in.Query.Search = "chips"
	engine.Build(ctx, in)
	if cacheStore.sets != 2 {
		t.Fatalf("expected distinct cache entries per query, got %d fills", cacheStore.sets)
	}
}
