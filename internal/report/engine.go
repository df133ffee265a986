package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/cache"
	"sarisari/backend/internal/domain"
)

// Engine wraps the pure query functions with an optional cache. The
// cache key includes the store version, so a hit is always consistent
// with the current ledger and catalogue.
type Engine struct {
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// BuildInput is the snapshot an Engine.Build call works from.
type BuildInput struct {
	Query    domain.SalesQuery
	Now      time.Time
	Sales    []domain.Sale
	Items    []domain.InventoryItem
	Expenses decimal.Decimal
	Version  uint64
}

// Build computes the dashboard read model for the given snapshot,
// consulting the cache first.
func (e *Engine) Build(ctx context.Context, in BuildInput) domain.DashboardReport {
	cacheKey := buildCacheKey(in)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached
	}

	filtered := FilterByPeriod(in.Sales, in.Query.Period, in.Now, in.Query.Start, in.Query.End)
	filtered = FilterBySearch(filtered, in.Query.Search)
	index := ItemIndex(in.Items)
	totals := Aggregate(filtered, index, in.Expenses)

	result := domain.DashboardReport{
		Period:          in.Query.Period,
		GrossSales:      totals.GrossSales,
		CostOfGoodsSold: totals.CostOfGoodsSold,
		Expenses:        in.Expenses,
		TotalProfit:     totals.TotalProfit,
		SaleCount:       totals.SaleCount,
		ProfitPerItem:   ProfitPerItem(filtered, index),
		SalesOverTime:   SalesOverTime(filtered),
	}

	_ = e.cache.Set(ctx, cacheKey, &result, e.cacheTTL)
	return result
}

func buildCacheKey(in BuildInput) string {
	parts := []string{
		string(in.Query.Period),
		in.Query.Start.Format("2006-01-02"),
		in.Query.End.Format("2006-01-02"),
		strings.ToLower(strings.TrimSpace(in.Query.Search)),
		in.Expenses.String(),
		fmt.Sprintf("v:%d", in.Version),
	}
	if in.Query.Period == domain.PeriodDaily || in.Query.Period == domain.PeriodWeekly || in.Query.Period == domain.PeriodMonthly {
		// Anchored periods shift with the clock; key on the current day.
		parts = append(parts, in.Now.Format("2006-01-02"))
	}

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "pos:dashboard:" + hex.EncodeToString(hash[:])
}
