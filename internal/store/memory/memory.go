package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/store"
	"sarisari/backend/internal/xid"
)

// Store is the in-memory Repository implementation. Items keep their
// insertion order; sales form an append-only ledger.
type Store struct {
	mu        sync.RWMutex
	items     map[string]domain.InventoryItem
	itemOrder []string
	salesByID map[string]domain.Sale
	saleOrder []string
	expenses  decimal.Decimal
	version   uint64
}

func New() *Store {
	return &Store{
		items:     make(map[string]domain.InventoryItem),
		salesByID: make(map[string]domain.Sale),
	}
}

// NewSeeded returns a store preloaded with the starter catalogue and
// the default operating-expenses figure.
func NewSeeded() *Store {
	items := []domain.InventoryItem{
		{ID: "item-1", Name: "Potato Chips", Category: domain.CategorySnacks, Stock: 150, CostPrice: dec("0.75"), SellingPrice: dec("1.50")},
		{ID: "item-2", Name: "Cola", Category: domain.CategoryDrinks, Stock: 200, CostPrice: dec("0.50"), SellingPrice: dec("1.25")},
		{ID: "item-3", Name: "Toothpaste", Category: domain.CategoryToiletries, Stock: 80, CostPrice: dec("1.50"), SellingPrice: dec("3.00")},
		{ID: "item-4", Name: "Milk (1L)", Category: domain.CategoryDairy, Stock: 50, CostPrice: dec("1.20"), SellingPrice: dec("2.50")},
		{ID: "item-5", Name: "Apples (per kg)", Category: domain.CategoryProduce, Stock: 100, CostPrice: dec("1.00"), SellingPrice: dec("2.20")},
		{ID: "item-6", Name: "Sourdough Bread", Category: domain.CategoryBakery, Stock: 40, CostPrice: dec("2.00"), SellingPrice: dec("4.50")},
		{ID: "item-7", Name: "Bottled Water", Category: domain.CategoryDrinks, Stock: 300, CostPrice: dec("0.30"), SellingPrice: dec("1.00")},
		{ID: "item-8", Name: "Chocolate Bar", Category: domain.CategorySnacks, Stock: 120, CostPrice: dec("0.80"), SellingPrice: dec("1.75")},
		{ID: "item-9", Name: "Shampoo", Category: domain.CategoryToiletries, Stock: 65, CostPrice: dec("2.50"), SellingPrice: dec("5.00")},
		{ID: "item-10", Name: "Yogurt", Category: domain.CategoryDairy, Stock: 75, CostPrice: dec("0.60"), SellingPrice: dec("1.40")},
	}

	s := New()
	for _, item := range items {
		s.items[item.ID] = item
		s.itemOrder = append(s.itemOrder, item.ID)
	}
	s.expenses = dec("500.00")
	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *Store) ListItems(_ context.Context) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.InventoryItem, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		items = append(items, s.items[id])
	}
	return items, nil
}

func (s *Store) GetItem(_ context.Context, id string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || strings.TrimSpace(item.Name) == "" || !item.Category.IsValid() {
		return nil, store.ErrValidation
	}
	if item.Stock < 0 || !item.CostPrice.IsPositive() || !item.SellingPrice.IsPositive() {
		return nil, store.ErrValidation
	}
	if _, exists := s.items[item.ID]; exists {
		return nil, store.ErrValidation
	}

	s.items[item.ID] = item
	s.itemOrder = append(s.itemOrder, item.ID)
	s.version++
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(item.Name) == "" || !item.Category.IsValid() {
		return nil, store.ErrValidation
	}
	if !item.CostPrice.IsPositive() || !item.SellingPrice.IsPositive() {
		return nil, store.ErrValidation
	}
	current, exists := s.items[item.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Stock is only changed by restock and checkout.
	item.Stock = current.Stock
	s.items[item.ID] = item
	s.version++
	updated := item
	return &updated, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.items, id)
	s.itemOrder = slices.DeleteFunc(s.itemOrder, func(existing string) bool {
		return existing == id
	})
	s.version++
	return nil
}

func (s *Store) RestockItem(_ context.Context, id string, qty int) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if qty <= 0 {
		return nil, store.ErrValidation
	}
	item, exists := s.items[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	item.Stock += qty
	s.items[id] = item
	s.version++
	updated := item
	return &updated, nil
}

// RecordSale applies a checkout atomically: every line is checked
// against live stock first, and on any shortfall nothing is written.
// Quantities for the same item across multiple lines are summed before
// the check.
func (s *Store) RecordSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}

	needed := make(map[string]int)
	for _, line := range sale.Items {
		if line.Quantity <= 0 {
			return nil, store.ErrValidation
		}
		needed[line.ItemID] += line.Quantity
	}
	for _, line := range sale.Items {
		item, exists := s.items[line.ItemID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if req := needed[line.ItemID]; item.Stock < req {
			return nil, &store.OutOfStockError{
				ItemID:    item.ID,
				Name:      item.Name,
				Requested: req,
				Available: item.Stock,
			}
		}
	}

	for id, qty := range needed {
		item := s.items[id]
		item.Stock -= qty
		s.items[id] = item
	}

	if sale.Date.IsZero() {
		sale.Date = time.Now()
	}
	if sale.ID == "" {
		sale.ID = xid.ForSale(sale.Date)
	}
	s.salesByID[sale.ID] = cloneSale(sale)
	s.saleOrder = append(s.saleOrder, sale.ID)
	s.version++
	recorded := cloneSale(sale)
	return &recorded, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.saleOrder))
	// Newest first.
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sales = append(sales, cloneSale(s.salesByID[s.saleOrder[i]]))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return sales, nil
}

func (s *Store) GetSale(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copySale := cloneSale(sale)
	return &copySale, nil
}

func (s *Store) Expenses(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expenses, nil
}

func (s *Store) SetExpenses(_ context.Context, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value.IsNegative() {
		return store.ErrValidation
	}
	s.expenses = value
	s.version++
	return nil
}

func (s *Store) Version(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneSale(src domain.Sale) domain.Sale {
	dst := src
	dst.Items = make([]domain.SaleItem, len(src.Items))
	copy(dst.Items, src.Items)
	return dst
}
