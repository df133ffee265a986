package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/cache"
	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/report"
	"sarisari/backend/internal/store"
	"sarisari/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	engine := report.NewEngine(cache.NoopReportCache{}, 5*time.Second)
	return New(repo, engine, "front-desk")
}

func dec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", v, err)
	}
	return d
}

func addLine(t *testing.T, svc *Service, itemID string, qty int, method domain.PaymentMethod) {
	t.Helper()
	_, err := svc.AddCartLine(context.Background(), domain.CartAddRequest{
		ItemID:        itemID,
		Quantity:      qty,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("add %s x%d: %v", itemID, qty, err)
	}
}

func TestCheckoutScenario(t *testing.T) {
	// Potato Chips: cost 0.75, sell 1.50, stock 150. Selling 10 must
	// leave stock 140 with a 15.00 sale; against zero expenses the
	// report shows COGS 7.50 and profit 7.50.
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.SetExpenses(ctx, domain.ExpensesRequest{Expenses: decimal.Zero}); err != nil {
		t.Fatalf("set expenses: %v", err)
	}

	addLine(t, svc, "item-1", 10, domain.PaymentCash)
	resp, err := svc.Checkout(ctx, domain.CheckoutRequest{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !resp.Sale.TotalAmount.Equal(dec(t, "15.00")) {
		t.Fatalf("expected total 15.00, got %s", resp.Sale.TotalAmount)
	}

	items, err := svc.ListItems(ctx, "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, item := range items.Items {
		if item.ID == "item-1" && item.Stock != 140 {
			t.Fatalf("expected stock 140, got %d", item.Stock)
		}
	}

	dash, err := svc.Dashboard(ctx, domain.SalesQuery{Period: domain.PeriodAll})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !dash.GrossSales.Equal(dec(t, "15.00")) {
		t.Fatalf("expected gross 15.00, got %s", dash.GrossSales)
	}
	if !dash.CostOfGoodsSold.Equal(dec(t, "7.50")) {
		t.Fatalf("expected COGS 7.50, got %s", dash.CostOfGoodsSold)
	}
	if !dash.TotalProfit.Equal(dec(t, "7.50")) {
		t.Fatalf("expected profit 7.50, got %s", dash.TotalProfit)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := newTestService()

	_, err := svc.Checkout(context.Background(), domain.CheckoutRequest{})
	if err == nil {
		t.Fatalf("expected checkout of empty cart to fail")
	}
}

func TestCheckoutAllOrNothing(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Two lines: one satisfiable, one not. Neither stock move nor the
	// sale may be applied.
	addLine(t, svc, "item-2", 5, domain.PaymentCash)
	addLine(t, svc, "item-6", 41, domain.PaymentCash) // stock 40

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	var oos *store.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %T", err)
	}
	if oos.Name != "Sourdough Bread" || oos.Available != 40 {
		t.Fatalf("unexpected shortfall detail: %+v", oos)
	}

	items, err := svc.ListItems(ctx, "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, item := range items.Items {
		if item.ID == "item-2" && item.Stock != 200 {
			t.Fatalf("expected cola stock untouched at 200, got %d", item.Stock)
		}
		if item.ID == "item-6" && item.Stock != 40 {
			t.Fatalf("expected bread stock untouched at 40, got %d", item.Stock)
		}
	}

	sales, err := svc.ListSales(ctx, domain.SalesQuery{})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales.Sales) != 0 {
		t.Fatalf("expected empty ledger after failed checkout, got %d sales", len(sales.Sales))
	}

	// The cart survives the failure so the cashier can fix it.
	if got := len(svc.Cart(ctx, "").Lines); got != 2 {
		t.Fatalf("expected cart to keep its 2 lines, got %d", got)
	}
}

func TestCheckoutSumsQuantitiesAcrossLines(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	// Same item under two payment methods: 25 + 20 exceeds stock 40.
	addLine(t, svc, "item-6", 25, domain.PaymentCash)
	addLine(t, svc, "item-6", 20, domain.PaymentGCash)

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected combined quantities to exceed stock, got %v", err)
	}
}

func TestCartMergeSamePaymentMethod(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addLine(t, svc, "item-1", 2, domain.PaymentCash)
	addLine(t, svc, "item-1", 3, domain.PaymentCash)
	addLine(t, svc, "item-1", 1, domain.PaymentGCash)

	cart := svc.Cart(ctx, "")
	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 lines (merged cash + separate gcash), got %d", len(cart.Lines))
	}
	for _, line := range cart.Lines {
		if line.PaymentMethod == domain.PaymentCash && line.Quantity != 5 {
			t.Fatalf("expected merged cash quantity 5, got %d", line.Quantity)
		}
	}
}

func TestCartRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService()

	_, err := svc.AddCartLine(context.Background(), domain.CartAddRequest{
		ItemID:        "item-1",
		Quantity:      0,
		PaymentMethod: domain.PaymentCash,
	})
	if err == nil {
		t.Fatalf("expected zero quantity to be rejected")
	}
}

func TestUpdateCartQuantityIgnoresNonPositive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addLine(t, svc, "item-1", 4, domain.PaymentCash)
	cartID := svc.Cart(ctx, "").Lines[0].CartID

	resp := svc.UpdateCartQuantity(ctx, "", cartID, 0)
	if resp.Lines[0].Quantity != 4 {
		t.Fatalf("expected quantity unchanged at 4, got %d", resp.Lines[0].Quantity)
	}

	resp = svc.UpdateCartQuantity(ctx, "", cartID, 7)
	if resp.Lines[0].Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", resp.Lines[0].Quantity)
	}
}

func TestRemoveCartLineUnknownIDIsNoop(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addLine(t, svc, "item-1", 1, domain.PaymentCash)
	resp := svc.RemoveCartLine(ctx, "", "no-such-line")
	if len(resp.Lines) != 1 {
		t.Fatalf("expected line to survive removal of unknown id, got %d lines", len(resp.Lines))
	}
}

func TestCartsAreIsolatedPerTerminal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddCartLine(ctx, domain.CartAddRequest{
		TerminalID:    "terminal-2",
		ItemID:        "item-1",
		Quantity:      1,
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("add line: %v", err)
	}

	if got := len(svc.Cart(ctx, "terminal-1").Lines); got != 0 {
		t.Fatalf("expected terminal-1 cart empty, got %d lines", got)
	}
	if got := len(svc.Cart(ctx, "terminal-2").Lines); got != 1 {
		t.Fatalf("expected terminal-2 cart to hold the line, got %d", got)
	}
}

func TestBlankTerminalUsesConfiguredDefault(t *testing.T) {
	svc := newTestService() // configured with default terminal "front-desk"
	ctx := context.Background()

	addLine(t, svc, "item-1", 2, domain.PaymentCash)

	resp := svc.Cart(ctx, "front-desk")
	if got := len(resp.Lines); got != 1 {
		t.Fatalf("expected the line on the default terminal, got %d lines", got)
	}
	if resp.TerminalID != "front-desk" {
		t.Fatalf("expected terminal front-desk, got %q", resp.TerminalID)
	}

	// A blank terminal on read resolves to the same cart.
	if got := len(svc.Cart(ctx, "").Lines); got != 1 {
		t.Fatalf("expected blank terminal to read the default cart, got %d lines", got)
	}
}

func TestAddNewItemValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.AddNewItem(ctx, domain.ItemCreateRequest{
		Name:     "   ",
		Category: domain.CategorySnacks,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for blank name, got %v", err)
	}

	_, err = svc.AddNewItem(ctx, domain.ItemCreateRequest{
		Name:     "Instant Noodles",
		Category: "Frozen",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown category, got %v", err)
	}

	// Prices must be strictly positive; a zero price is not sellable.
	_, err = svc.AddNewItem(ctx, domain.ItemCreateRequest{
		Name:         "Instant Noodles",
		Category:     domain.CategorySnacks,
		CostPrice:    dec(t, "0"),
		SellingPrice: dec(t, "0.90"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero cost price, got %v", err)
	}
	_, err = svc.AddNewItem(ctx, domain.ItemCreateRequest{
		Name:         "Instant Noodles",
		Category:     domain.CategorySnacks,
		CostPrice:    dec(t, "0.40"),
		SellingPrice: dec(t, "0"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero selling price, got %v", err)
	}

	created, err := svc.AddNewItem(ctx, domain.ItemCreateRequest{
		Name:         "Instant Noodles",
		Category:     domain.CategorySnacks,
		CostPrice:    dec(t, "0.40"),
		SellingPrice: dec(t, "0.90"),
		InitialStock: 60,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if created.Item.ID == "" || created.Item.Stock != 60 {
		t.Fatalf("unexpected created item: %+v", created.Item)
	}
	if created.Item.LowStock {
		t.Fatalf("stock 60 must not be flagged low")
	}
}

func TestEditItemOverwritesFields(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	updated, err := svc.EditItem(ctx, "item-1", domain.ItemUpdateRequest{
		Name:         "Potato Chips XL",
		Category:     domain.CategorySnacks,
		CostPrice:    dec(t, "0.80"),
		SellingPrice: dec(t, "1.80"),
	})
	if err != nil {
		t.Fatalf("edit item: %v", err)
	}
	if updated.Item.Name != "Potato Chips XL" || !updated.Item.SellingPrice.Equal(dec(t, "1.80")) {
		t.Fatalf("unexpected item after edit: %+v", updated.Item)
	}
	if updated.Item.Stock != 150 {
		t.Fatalf("edit must not touch stock, got %d", updated.Item.Stock)
	}

	_, err = svc.EditItem(ctx, "item-1", domain.ItemUpdateRequest{
		Name:         "Potato Chips XL",
		Category:     domain.CategorySnacks,
		CostPrice:    dec(t, "0"),
		SellingPrice: dec(t, "1.80"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero cost price on edit, got %v", err)
	}
}

func TestRestockItem(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RestockItem(ctx, "item-6", domain.RestockRequest{Quantity: 0})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero restock, got %v", err)
	}

	updated, err := svc.RestockItem(ctx, "item-6", domain.RestockRequest{Quantity: 15})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if updated.Item.Stock != 55 {
		t.Fatalf("expected stock 55, got %d", updated.Item.Stock)
	}
}

func TestDeletedItemKeepsHistoryReadable(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addLine(t, svc, "item-1", 3, domain.PaymentCash)
	checkout, err := svc.Checkout(ctx, domain.CheckoutRequest{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if err := svc.DeleteItem(ctx, "item-1"); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	detail, err := svc.GetSale(ctx, checkout.Sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if len(detail.Lines) != 1 || detail.Lines[0].Name != "Potato Chips" {
		t.Fatalf("expected denormalized line to survive deletion, got %+v", detail.Lines)
	}

	// The orphaned line no longer contributes cost or profit.
	dash, err := svc.Dashboard(ctx, domain.SalesQuery{Period: domain.PeriodAll})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !dash.CostOfGoodsSold.IsZero() {
		t.Fatalf("expected zero COGS after item deletion, got %s", dash.CostOfGoodsSold)
	}
	if len(dash.ProfitPerItem) != 0 {
		t.Fatalf("expected deleted item skipped in ranking, got %+v", dash.ProfitPerItem)
	}
}

func TestSalesSearchFilter(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	addLine(t, svc, "item-1", 1, domain.PaymentCash)
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{}); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	addLine(t, svc, "item-2", 1, domain.PaymentCash)
	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{}); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	matched, err := svc.ListSales(ctx, domain.SalesQuery{Search: "potato"})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(matched.Sales) != 1 {
		t.Fatalf("expected 1 sale matching 'potato', got %d", len(matched.Sales))
	}

	none, err := svc.ListSales(ctx, domain.SalesQuery{Search: "toothpaste"})
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(none.Sales) != 0 {
		t.Fatalf("expected no sales matching 'toothpaste', got %d", len(none.Sales))
	}
}

func TestSaleDetailGroupsByItemPriceAndPayment(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	override := dec(t, "1.50")
	if _, err := svc.AddCartLine(ctx, domain.CartAddRequest{
		ItemID:        "item-1",
		Quantity:      2,
		PaymentMethod: domain.PaymentCash,
	}); err != nil {
		t.Fatalf("add line: %v", err)
	}
	if _, err := svc.AddCartLine(ctx, domain.CartAddRequest{
		ItemID:        "item-1",
		Quantity:      1,
		Price:         &override,
		PaymentMethod: domain.PaymentGCash,
	}); err != nil {
		t.Fatalf("add line: %v", err)
	}

	checkout, err := svc.Checkout(ctx, domain.CheckoutRequest{})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	detail, err := svc.GetSale(ctx, checkout.Sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	// Same item and price, but different payment methods: two rows.
	if len(detail.Lines) != 2 {
		t.Fatalf("expected 2 grouped rows, got %d: %+v", len(detail.Lines), detail.Lines)
	}
}
