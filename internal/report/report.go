package report

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/domain"
)

// The query functions in this package are pure: they read the sale and
// item snapshots they are handed and nothing else, so results for the
// same inputs are safe to memoize.

// WindowFor resolves a report period to a half-open [from, to) window
// anchored at now. For PeriodAll both bounds are zero. Custom windows
// run from the start day's midnight to the midnight after the end day.
func WindowFor(period domain.ReportPeriod, now time.Time, start time.Time, end time.Time) (time.Time, time.Time) {
	switch period {
	case domain.PeriodDaily:
		from := startOfDay(now)
		return from, from.AddDate(0, 0, 1)
	case domain.PeriodWeekly:
		// Week starts on the most recent Sunday at midnight.
		from := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		return from, from.AddDate(0, 0, 7)
	case domain.PeriodMonthly:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return from, from.AddDate(0, 1, 0)
	case domain.PeriodCustom:
		if start.IsZero() || end.IsZero() {
			return time.Time{}, time.Time{}
		}
		return startOfDay(start), startOfDay(end).AddDate(0, 0, 1)
	default:
		return time.Time{}, time.Time{}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FilterByPeriod keeps the sales whose date falls inside the period's
// window anchored at now.
func FilterByPeriod(sales []domain.Sale, period domain.ReportPeriod, now time.Time, start time.Time, end time.Time) []domain.Sale {
	from, to := WindowFor(period, now, start, end)
	if from.IsZero() && to.IsZero() {
		return sales
	}

	result := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if sale.Date.Before(from) || !sale.Date.Before(to) {
			continue
		}
		result = append(result, sale)
	}
	return result
}

// FilterBySearch keeps the sales whose id or any line-item name
// contains the query, case-insensitively. An empty query keeps all.
func FilterBySearch(sales []domain.Sale, query string) []domain.Sale {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return sales
	}

	result := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		if saleMatches(sale, query) {
			result = append(result, sale)
		}
	}
	return result
}

func saleMatches(sale domain.Sale, query string) bool {
	if strings.Contains(strings.ToLower(sale.ID), query) {
		return true
	}
	for _, line := range sale.Items {
		if strings.Contains(strings.ToLower(line.Name), query) {
			return true
		}
	}
	return false
}

// Totals are the financial aggregates over a filtered sale set.
// Cost of goods is priced at each item's CURRENT cost, so margins
// reflect today's replacement cost rather than the cost at sale time;
// lines whose item no longer exists contribute zero.
type Totals struct {
	GrossSales      decimal.Decimal
	CostOfGoodsSold decimal.Decimal
	TotalProfit     decimal.Decimal
	SaleCount       int
}

func Aggregate(sales []domain.Sale, items map[string]domain.InventoryItem, expenses decimal.Decimal) Totals {
	gross := decimal.Zero
	cogs := decimal.Zero
	for _, sale := range sales {
		gross = gross.Add(sale.TotalAmount)
		for _, line := range sale.Items {
			item, exists := items[line.ItemID]
			if !exists {
				continue
			}
			cogs = cogs.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}

	return Totals{
		GrossSales:      gross,
		CostOfGoodsSold: cogs,
		TotalProfit:     gross.Sub(cogs).Sub(expenses),
		SaleCount:       len(sales),
	}
}

// ProfitPerItem ranks items by realized profit, grouped by the sale
// line's name as it was sold (a later rename does not re-label
// history): (line price - current cost) x quantity, summed per name,
// descending, capped at ten rows. Lines whose item was deleted are
// skipped.
func ProfitPerItem(sales []domain.Sale, items map[string]domain.InventoryItem) []domain.ItemProfit {
	byName := make(map[string]decimal.Decimal)
	for _, sale := range sales {
		for _, line := range sale.Items {
			item, exists := items[line.ItemID]
			if !exists {
				continue
			}
			profit := line.Price.Sub(item.CostPrice).Mul(decimal.NewFromInt(int64(line.Quantity)))
			byName[line.Name] = byName[line.Name].Add(profit)
		}
	}

	ranking := make([]domain.ItemProfit, 0, len(byName))
	for name, profit := range byName {
		ranking = append(ranking, domain.ItemProfit{Name: name, Profit: profit})
	}
	slices.SortFunc(ranking, func(a, b domain.ItemProfit) int {
		if c := b.Profit.Cmp(a.Profit); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(ranking) > 10 {
		ranking = ranking[:10]
	}
	return ranking
}

// SalesOverTime buckets sale totals by calendar date, ascending.
func SalesOverTime(sales []domain.Sale) []domain.SalesPoint {
	byDate := make(map[string]decimal.Decimal)
	for _, sale := range sales {
		key := sale.Date.Format("2006-01-02")
		byDate[key] = byDate[key].Add(sale.TotalAmount)
	}

	series := make([]domain.SalesPoint, 0, len(byDate))
	for date, total := range byDate {
		series = append(series, domain.SalesPoint{Date: date, Total: total})
	}
	slices.SortFunc(series, func(a, b domain.SalesPoint) int {
		return strings.Compare(a.Date, b.Date)
	})
	return series
}

// GroupSaleLines merges a sale's lines for display: rows sharing the
// same item, unit price and payment method are combined. This is the
// detail-view grouping, distinct from the cart merge which ignores
// price.
func GroupSaleLines(sale domain.Sale) []domain.GroupedSaleLine {
	type key struct {
		itemID string
		price  string
		method domain.PaymentMethod
	}

	order := make([]key, 0, len(sale.Items))
	grouped := make(map[key]domain.GroupedSaleLine, len(sale.Items))
	for _, line := range sale.Items {
		k := key{itemID: line.ItemID, price: line.Price.String(), method: line.PaymentMethod}
		row, exists := grouped[k]
		if !exists {
			order = append(order, k)
			row = domain.GroupedSaleLine{
				ItemID:        line.ItemID,
				Name:          line.Name,
				Price:         line.Price,
				PaymentMethod: line.PaymentMethod,
			}
		}
		row.Quantity += line.Quantity
		row.LineTotal = line.Price.Mul(decimal.NewFromInt(int64(row.Quantity)))
		grouped[k] = row
	}

	result := make([]domain.GroupedSaleLine, 0, len(order))
	for _, k := range order {
		result = append(result, grouped[k])
	}
	return result
}

// ItemIndex maps the current catalogue by id for the aggregate
// functions.
func ItemIndex(items []domain.InventoryItem) map[string]domain.InventoryItem {
	index := make(map[string]domain.InventoryItem, len(items))
	for _, item := range items {
		index[item.ID] = item
	}
	return index
}
