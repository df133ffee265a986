package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// OutOfStockError reports a checkout line that asked for more units
// than the item has. It unwraps to ErrInsufficientStock.
type OutOfStockError struct {
	ItemID    string
	Name      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (requested %d, available %d)",
		e.Name, e.Requested, e.Available)
}

func (e *OutOfStockError) Unwrap() error { return ErrInsufficientStock }

// Repository is the storage boundary of the application. The memory
// implementation is the default; any future driver only has to satisfy
// this interface.
type Repository interface {
	ListItems(ctx context.Context) ([]domain.InventoryItem, error)
	GetItem(ctx context.Context, id string) (*domain.InventoryItem, error)
	CreateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	UpdateItem(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	DeleteItem(ctx context.Context, id string) error
	RestockItem(ctx context.Context, id string, qty int) (*domain.InventoryItem, error)

	// RecordSale atomically checks stock for every line, decrements it
	// and appends the sale to the ledger. On any shortfall nothing is
	// written and an *OutOfStockError is returned.
	RecordSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	GetSale(ctx context.Context, id string) (*domain.Sale, error)

	Expenses(ctx context.Context) (decimal.Decimal, error)
	SetExpenses(ctx context.Context, value decimal.Decimal) error

	// Version is a monotonic counter bumped on every mutation; report
	// caches key on it so stale aggregates are never served.
	Version(ctx context.Context) (uint64, error)
}
