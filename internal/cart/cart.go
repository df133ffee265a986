package cart

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/xid"
)

var (
	ErrEmptyItem   = errors.New("item id required")
	ErrBadQuantity = errors.New("quantity must be positive")
	ErrBadPayment  = errors.New("unknown payment method")
	ErrBadPrice    = errors.New("price must not be negative")
	ErrEmptyCart   = errors.New("cart is empty")
)

// Manager holds the staged carts, one per terminal. It has no storage
// access; checkout validation against live inventory happens in the
// service layer.
type Manager struct {
	mu    sync.Mutex
	carts map[string][]domain.CartLine
}

func NewManager() *Manager {
	return &Manager{carts: make(map[string][]domain.CartLine)}
}

func normalizeTerminal(terminalID string) string {
	terminalID = strings.TrimSpace(terminalID)
	if terminalID == "" {
		return domain.DefaultTerminalID
	}
	return terminalID
}

// AddLine stages a line. When a line with the same item and payment
// method already exists the quantities are merged and the price is
// overwritten by the incoming line's price; otherwise a new line is
// appended with a fresh cart id.
func (m *Manager) AddLine(terminalID string, item domain.InventoryItem, qty int, price *decimal.Decimal, method domain.PaymentMethod) (domain.CartLine, error) {
	if item.ID == "" {
		return domain.CartLine{}, ErrEmptyItem
	}
	if qty <= 0 {
		return domain.CartLine{}, ErrBadQuantity
	}
	if !method.IsValid() {
		return domain.CartLine{}, ErrBadPayment
	}

	linePrice := item.SellingPrice
	if price != nil {
		if price.IsNegative() {
			return domain.CartLine{}, ErrBadPrice
		}
		linePrice = *price
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	terminal := normalizeTerminal(terminalID)
	lines := m.carts[terminal]
	for i, existing := range lines {
		if existing.ItemID == item.ID && existing.PaymentMethod == method {
			existing.Quantity += qty
			existing.Price = linePrice
			lines[i] = existing
			return existing, nil
		}
	}

	line := domain.CartLine{
		CartID:        xid.ForCartLine(time.Now(), item.ID),
		ItemID:        item.ID,
		Name:          item.Name,
		Quantity:      qty,
		Price:         linePrice,
		PaymentMethod: method,
	}
	m.carts[terminal] = append(lines, line)
	return line, nil
}

// RemoveLine drops the line with the given cart id. Unknown ids are a
// no-op.
func (m *Manager) RemoveLine(terminalID string, cartID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	terminal := normalizeTerminal(terminalID)
	lines := m.carts[terminal]
	for i, existing := range lines {
		if existing.CartID == cartID {
			m.carts[terminal] = append(lines[:i], lines[i+1:]...)
			return
		}
	}
}

// UpdateQuantity sets the quantity of an existing line. A quantity of
// zero or less leaves the line unchanged, as does an unknown cart id.
func (m *Manager) UpdateQuantity(terminalID string, cartID string, qty int) {
	if qty <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	terminal := normalizeTerminal(terminalID)
	lines := m.carts[terminal]
	for i, existing := range lines {
		if existing.CartID == cartID {
			existing.Quantity = qty
			lines[i] = existing
			return
		}
	}
}

// Lines returns a copy of the terminal's staged lines.
func (m *Manager) Lines(terminalID string) []domain.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.carts[normalizeTerminal(terminalID)]
	result := make([]domain.CartLine, len(lines))
	copy(result, lines)
	return result
}

// Total sums price × quantity over the terminal's staged lines.
func (m *Manager) Total(terminalID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for _, line := range m.carts[normalizeTerminal(terminalID)] {
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func (m *Manager) Clear(terminalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, normalizeTerminal(terminalID))
}
