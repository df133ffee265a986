package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sarisari/backend/internal/cart"
	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/report"
	"sarisari/backend/internal/store"
	"sarisari/backend/internal/xid"
)

// Service orchestrates the cart builder, inventory, ledger and
// reporting over a Repository.
type Service struct {
	repo            store.Repository
	carts           *cart.Manager
	reports         *report.Engine
	defaultTerminal string
	now             func() time.Time
}

func New(repo store.Repository, reports *report.Engine, defaultTerminal string) *Service {
	if reports == nil {
		reports = report.NewEngine(nil, 0)
	}
	defaultTerminal = strings.TrimSpace(defaultTerminal)
	if defaultTerminal == "" {
		defaultTerminal = domain.DefaultTerminalID
	}

	return &Service{
		repo:            repo,
		carts:           cart.NewManager(),
		reports:         reports,
		defaultTerminal: defaultTerminal,
		now:             time.Now,
	}
}

// --- inventory ---

func (s *Service) ListItems(ctx context.Context, category string) (domain.InventoryListResponse, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return domain.InventoryListResponse{}, err
	}

	category = strings.TrimSpace(category)
	views := make([]domain.InventoryItemView, 0, len(items))
	for _, item := range items {
		if category != "" && !strings.EqualFold(category, string(item.Category)) {
			continue
		}
		views = append(views, toItemView(item))
	}
	return domain.InventoryListResponse{Items: views}, nil
}

func (s *Service) AddNewItem(ctx context.Context, req domain.ItemCreateRequest) (domain.ItemResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !req.Category.IsValid() {
		return domain.ItemResponse{}, store.ErrValidation
	}
	if req.InitialStock < 0 || !req.CostPrice.IsPositive() || !req.SellingPrice.IsPositive() {
		return domain.ItemResponse{}, store.ErrValidation
	}

	item := domain.InventoryItem{
		ID:           "item-" + uuid.NewString(),
		Name:         req.Name,
		Category:     req.Category,
		Stock:        req.InitialStock,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.ItemResponse{}, err
	}
	return domain.ItemResponse{Item: toItemView(*created)}, nil
}

func (s *Service) EditItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.ItemResponse, error) {
	id = strings.TrimSpace(id)
	req.Name = strings.TrimSpace(req.Name)
	if id == "" || req.Name == "" || !req.Category.IsValid() {
		return domain.ItemResponse{}, store.ErrValidation
	}
	if !req.CostPrice.IsPositive() || !req.SellingPrice.IsPositive() {
		return domain.ItemResponse{}, store.ErrValidation
	}

	existing, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return domain.ItemResponse{}, err
	}

	updated := *existing
	updated.Name = req.Name
	updated.Category = req.Category
	updated.CostPrice = req.CostPrice
	updated.SellingPrice = req.SellingPrice

	saved, err := s.repo.UpdateItem(ctx, updated)
	if err != nil {
		return domain.ItemResponse{}, err
	}
	return domain.ItemResponse{Item: toItemView(*saved)}, nil
}

func (s *Service) RestockItem(ctx context.Context, id string, req domain.RestockRequest) (domain.ItemResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" || req.Quantity <= 0 {
		return domain.ItemResponse{}, store.ErrValidation
	}

	updated, err := s.repo.RestockItem(ctx, id, req.Quantity)
	if err != nil {
		return domain.ItemResponse{}, err
	}
	return domain.ItemResponse{Item: toItemView(*updated)}, nil
}

// DeleteItem removes an item from the catalogue. Past sales keep their
// denormalized copy of the name and price.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return store.ErrValidation
	}
	return s.repo.DeleteItem(ctx, id)
}

// --- cart builder ---

func (s *Service) Cart(_ context.Context, terminalID string) domain.CartResponse {
	terminal := s.terminal(terminalID)
	return domain.CartResponse{
		TerminalID: terminal,
		Lines:      s.carts.Lines(terminal),
		Total:      s.carts.Total(terminal),
	}
}

func (s *Service) AddCartLine(ctx context.Context, req domain.CartAddRequest) (domain.CartResponse, error) {
	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		return domain.CartResponse{}, cart.ErrEmptyItem
	}

	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.CartResponse{}, err
	}

	if _, err := s.carts.AddLine(s.terminal(req.TerminalID), *item, req.Quantity, req.Price, req.PaymentMethod); err != nil {
		return domain.CartResponse{}, err
	}
	return s.Cart(ctx, req.TerminalID), nil
}

func (s *Service) RemoveCartLine(ctx context.Context, terminalID string, cartID string) domain.CartResponse {
	s.carts.RemoveLine(s.terminal(terminalID), cartID)
	return s.Cart(ctx, terminalID)
}

func (s *Service) UpdateCartQuantity(ctx context.Context, terminalID string, cartID string, qty int) domain.CartResponse {
	s.carts.UpdateQuantity(s.terminal(terminalID), cartID, qty)
	return s.Cart(ctx, terminalID)
}

// Checkout turns the staged cart into a ledger sale. The whole cart
// succeeds or fails together: any line short on stock aborts the
// checkout before anything is written, and the cart is only cleared on
// success.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	terminal := s.terminal(req.TerminalID)
	lines := s.carts.Lines(terminal)
	if len(lines) == 0 {
		return domain.CheckoutResponse{}, cart.ErrEmptyCart
	}

	now := s.now()
	total := decimal.Zero
	items := make([]domain.SaleItem, 0, len(lines))
	for _, line := range lines {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, domain.SaleItem{
			ItemID:        line.ItemID,
			Name:          line.Name,
			Quantity:      line.Quantity,
			Price:         line.Price,
			PaymentMethod: line.PaymentMethod,
		})
	}

	sale := domain.Sale{
		ID:          xid.ForSale(now),
		Date:        now,
		Items:       items,
		TotalAmount: total,
	}

	recorded, err := s.repo.RecordSale(ctx, sale)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}

	s.carts.Clear(terminal)
	return domain.CheckoutResponse{Sale: *recorded}, nil
}

// --- sales history ---

func (s *Service) ListSales(ctx context.Context, query domain.SalesQuery) (domain.SalesListResponse, error) {
	if query.Period == "" {
		query.Period = domain.PeriodAll
	}
	if !query.Period.IsValid() {
		return domain.SalesListResponse{}, store.ErrValidation
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.SalesListResponse{}, err
	}

	filtered := report.FilterByPeriod(sales, query.Period, s.now(), query.Start, query.End)
	filtered = report.FilterBySearch(filtered, query.Search)
	if query.Limit > 0 && len(filtered) > query.Limit {
		filtered = filtered[:query.Limit]
	}
	return domain.SalesListResponse{Sales: filtered}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.SaleDetailResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.SaleDetailResponse{}, store.ErrValidation
	}

	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.SaleDetailResponse{}, err
	}

	return domain.SaleDetailResponse{
		Sale:  *sale,
		Lines: report.GroupSaleLines(*sale),
	}, nil
}

// --- reporting ---

func (s *Service) Dashboard(ctx context.Context, query domain.SalesQuery) (domain.DashboardReport, error) {
	if query.Period == "" {
		query.Period = domain.PeriodAll
	}
	if !query.Period.IsValid() {
		return domain.DashboardReport{}, store.ErrValidation
	}
	if query.Period == domain.PeriodCustom && (query.Start.IsZero() || query.End.IsZero()) {
		return domain.DashboardReport{}, store.ErrValidation
	}

	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}
	expenses, err := s.repo.Expenses(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}
	version, err := s.repo.Version(ctx)
	if err != nil {
		return domain.DashboardReport{}, err
	}

	return s.reports.Build(ctx, report.BuildInput{
		Query:    query,
		Now:      s.now(),
		Sales:    sales,
		Items:    items,
		Expenses: expenses,
		Version:  version,
	}), nil
}

func (s *Service) GetExpenses(ctx context.Context) (domain.ExpensesResponse, error) {
	expenses, err := s.repo.Expenses(ctx)
	if err != nil {
		return domain.ExpensesResponse{}, err
	}
	return domain.ExpensesResponse{Expenses: expenses}, nil
}

func (s *Service) SetExpenses(ctx context.Context, req domain.ExpensesRequest) (domain.ExpensesResponse, error) {
	if req.Expenses.IsNegative() {
		return domain.ExpensesResponse{}, store.ErrValidation
	}
	if err := s.repo.SetExpenses(ctx, req.Expenses); err != nil {
		return domain.ExpensesResponse{}, err
	}
	return domain.ExpensesResponse{Expenses: req.Expenses}, nil
}

// terminal resolves an incoming terminal ID, falling back to the
// configured default when the caller left it blank.
func (s *Service) terminal(terminalID string) string {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return s.defaultTerminal
	}
	return terminalID
}

func toItemView(item domain.InventoryItem) domain.InventoryItemView {
	return domain.InventoryItemView{
		InventoryItem: item,
		LowStock:      item.IsLowStock(),
	}
}
