package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level at or below which an item is
// flagged for restocking.
const LowStockThreshold = 20

// DefaultTerminalID is the cart bucket used when a request does not
// name a terminal.
const DefaultTerminalID = "terminal-1"

type Category string

const (
	CategorySnacks        Category = "Snacks"
	CategoryDrinks        Category = "Drinks"
	CategoryToiletries    Category = "Toiletries"
	CategoryDairy         Category = "Dairy"
	CategoryProduce       Category = "Produce"
	CategoryBakery        Category = "Bakery"
	CategoryMiscellaneous Category = "Miscellaneous"
)

// Categories lists every valid category in display order.
func Categories() []Category {
	return []Category{
		CategorySnacks,
		CategoryDrinks,
		CategoryToiletries,
		CategoryDairy,
		CategoryProduce,
		CategoryBakery,
		CategoryMiscellaneous,
	}
}

func (c Category) IsValid() bool {
	switch c {
	case CategorySnacks, CategoryDrinks, CategoryToiletries,
		CategoryDairy, CategoryProduce, CategoryBakery, CategoryMiscellaneous:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "Cash"
	PaymentGCash PaymentMethod = "GCash"
	PaymentCard  PaymentMethod = "Card"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentGCash, PaymentCard:
		return true
	}
	return false
}

type InventoryItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	Stock        int             `json:"stock"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

// IsLowStock reports whether the item is at or below the restock
// threshold.
func (i InventoryItem) IsLowStock() bool {
	return i.Stock <= LowStockThreshold
}

// InventoryItemView is an InventoryItem with the derived low-stock flag
// attached for API responses.
type InventoryItemView struct {
	InventoryItem
	LowStock bool `json:"lowStock"`
}

// CartLine is a staged line in the cart builder. Name and Price are
// copied from the inventory item when the line is added; Price may be
// overridden per line.
type CartLine struct {
	CartID        string          `json:"cartId"`
	ItemID        string          `json:"itemId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// SaleItem is a sale line frozen at checkout. It keeps its own copy of
// the item name and price so the ledger stays readable after the
// inventory item is edited or deleted.
type SaleItem struct {
	ItemID        string          `json:"itemId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

type Sale struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Items       []SaleItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// GroupedSaleLine is a sale detail row: lines sharing the same item,
// price and payment method merged for display.
type GroupedSaleLine struct {
	ItemID        string          `json:"itemId"`
	Name          string          `json:"name"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	LineTotal     decimal.Decimal `json:"lineTotal"`
}

// ReportPeriod selects the date window of a sales query.
type ReportPeriod string

const (
	PeriodAll     ReportPeriod = "all"
	PeriodDaily   ReportPeriod = "daily"
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
	PeriodCustom  ReportPeriod = "custom"
)

func (p ReportPeriod) IsValid() bool {
	switch p {
	case PeriodAll, PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodCustom:
		return true
	}
	return false
}

// SalesQuery carries the ledger filters. Start and End are only
// consulted when Period is PeriodCustom; Search is a case-insensitive
// substring matched against sale IDs and line-item names.
type SalesQuery struct {
	Period ReportPeriod
	Start  time.Time
	End    time.Time
	Search string
	Limit  int
}

// ItemProfit is one row of the per-item profit ranking.
type ItemProfit struct {
	Name   string          `json:"name"`
	Profit decimal.Decimal `json:"profit"`
}

// SalesPoint is one day of the sales-over-time series.
type SalesPoint struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// DashboardReport is the aggregate read model behind the dashboard.
type DashboardReport struct {
	Period          ReportPeriod    `json:"period"`
	GrossSales      decimal.Decimal `json:"grossSales"`
	CostOfGoodsSold decimal.Decimal `json:"costOfGoodsSold"`
	Expenses        decimal.Decimal `json:"expenses"`
	TotalProfit     decimal.Decimal `json:"totalProfit"`
	SaleCount       int             `json:"saleCount"`
	ProfitPerItem   []ItemProfit    `json:"profitPerItem"`
	SalesOverTime   []SalesPoint    `json:"salesOverTime"`
}

type ItemCreateRequest struct {
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	InitialStock int             `json:"initialStock"`
}

type ItemUpdateRequest struct {
	Name         string          `json:"name"`
	Category     Category        `json:"category"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

type RestockRequest struct {
	Quantity int `json:"quantity"`
}

type InventoryListResponse struct {
	Items []InventoryItemView `json:"items"`
}

type ItemResponse struct {
	Item InventoryItemView `json:"item"`
}

type CartAddRequest struct {
	TerminalID    string           `json:"terminalId,omitempty"`
	ItemID        string           `json:"itemId"`
	Quantity      int              `json:"quantity"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
}

type CartUpdateRequest struct {
	TerminalID string `json:"terminalId,omitempty"`
	Quantity   int    `json:"quantity"`
}

type CheckoutRequest struct {
	TerminalID string `json:"terminalId,omitempty"`
}

type CartResponse struct {
	TerminalID string          `json:"terminalId"`
	Lines      []CartLine      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

type CheckoutResponse struct {
	Sale Sale `json:"sale"`
}

type SalesListResponse struct {
	Sales []Sale `json:"sales"`
}

type SaleDetailResponse struct {
	Sale  Sale              `json:"sale"`
	Lines []GroupedSaleLine `json:"lines"`
}

type ExpensesRequest struct {
	Expenses decimal.Decimal `json:"expenses"`
}

type ExpensesResponse struct {
	Expenses decimal.Decimal `json:"expenses"`
}
