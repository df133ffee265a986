package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sarisari/backend/internal/cart"
	"sarisari/backend/internal/domain"
	"sarisari/backend/internal/service"
	"sarisari/backend/internal/store"
)

type API struct {
	svc           *service.Service
	allowedOrigin string
}

func New(svc *service.Service, allowedOrigin string) *API {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	return &API{
		svc:           svc,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	mux.HandleFunc("/api/v1/inventory", a.handleInventory)
	mux.HandleFunc("/api/v1/inventory/categories", a.handleCategories)
	mux.HandleFunc("/api/v1/inventory/items", a.handleInventoryItems)
	mux.HandleFunc("/api/v1/inventory/items/", a.handleInventoryItemActions)

	mux.HandleFunc("/api/v1/cart", a.handleCart)
	mux.HandleFunc("/api/v1/cart/lines", a.handleCartLines)
	mux.HandleFunc("/api/v1/cart/lines/", a.handleCartLineActions)
	mux.HandleFunc("/api/v1/cart/checkout", a.handleCheckout)

	mux.HandleFunc("/api/v1/sales", a.handleSales)
	mux.HandleFunc("/api/v1/sales/", a.handleSaleDetail)

	mux.HandleFunc("/api/v1/dashboard", a.handleDashboard)
	mux.HandleFunc("/api/v1/dashboard/export", a.handleDashboardExport)
	mux.HandleFunc("/api/v1/dashboard/expenses", a.handleExpenses)

	return a.withMiddleware(mux)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// --- inventory ---

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	resp, err := a.svc.ListItems(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": domain.Categories()})
}

func (a *API) handleInventoryItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ItemCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.svc.AddNewItem(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleInventoryItemActions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/inventory/items/")
	if rest == "" {
		writeError(w, http.StatusBadRequest, errors.New("item id required"))
		return
	}

	if id, ok := strings.CutSuffix(rest, "/restock"); ok {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.RestockRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.svc.RestockItem(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, errors.New("unknown route"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.ItemUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.svc.EditItem(r.Context(), rest, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodDelete:
		// Destructive; the client has to confirm explicitly.
		if r.URL.Query().Get("confirm") != "true" {
			writeError(w, http.StatusBadRequest, errors.New("deletion requires confirm=true"))
			return
		}
		if err := a.svc.DeleteItem(r.Context(), rest); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": rest})
	default:
		writeMethodNotAllowed(w)
	}
}

// --- cart ---

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.svc.Cart(r.Context(), r.URL.Query().Get("terminal_id")))
}

func (a *API) handleCartLines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CartAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.svc.AddCartLine(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCartLineActions(w http.ResponseWriter, r *http.Request) {
	cartID := strings.TrimPrefix(r.URL.Path, "/api/v1/cart/lines/")
	if cartID == "" || strings.Contains(cartID, "/") {
		writeError(w, http.StatusBadRequest, errors.New("cart line id required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.CartUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, a.svc.UpdateCartQuantity(r.Context(), req.TerminalID, cartID, req.Quantity))
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, a.svc.RemoveCartLine(r.Context(), r.URL.Query().Get("terminal_id"), cartID))
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	resp, err := a.svc.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- sales ---

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query, err := salesQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	query.Limit = parsePositiveLimit(r.URL.Query().Get("limit"), 0, 500)

	resp, err := a.svc.ListSales(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSaleDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/sales/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}

	resp, err := a.svc.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- dashboard ---

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query, err := salesQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.svc.Dashboard(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleDashboardExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query, err := salesQueryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := a.svc.Dashboard(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=dashboard-%s.csv", report.Period))
		_, _ = w.Write([]byte(dashboardToCSV(report)))
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(dashboardToPrintableHTML(report)))
	default:
		writeError(w, http.StatusBadRequest, errors.New("format must be csv or html"))
	}
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		resp, err := a.svc.GetExpenses(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPut:
		var req domain.ExpensesRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := a.svc.SetExpenses(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeMethodNotAllowed(w)
	}
}

func salesQueryFromRequest(r *http.Request) (domain.SalesQuery, error) {
	q := r.URL.Query()
	query := domain.SalesQuery{
		Period: domain.ReportPeriod(strings.TrimSpace(q.Get("period"))),
		Search: q.Get("q"),
	}
	if query.Period == "" {
		query.Period = domain.PeriodAll
	}
	if !query.Period.IsValid() {
		return domain.SalesQuery{}, fmt.Errorf("unknown period %q", q.Get("period"))
	}

	if query.Period == domain.PeriodCustom {
		start, err := time.ParseInLocation("2006-01-02", q.Get("start"), time.Local)
		if err != nil {
			return domain.SalesQuery{}, fmt.Errorf("start date: %w", err)
		}
		end, err := time.ParseInLocation("2006-01-02", q.Get("end"), time.Local)
		if err != nil {
			return domain.SalesQuery{}, fmt.Errorf("end date: %w", err)
		}
		if end.Before(start) {
			return domain.SalesQuery{}, errors.New("end date before start date")
		}
		query.Start = start
		query.End = end
	}

	return query, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, cart.ErrEmptyItem),
		errors.Is(err, cart.ErrBadQuantity),
		errors.Is(err, cart.ErrBadPayment),
		errors.Is(err, cart.ErrBadPrice),
		errors.Is(err, cart.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func dashboardToCSV(report domain.DashboardReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,period,%s", report.Period),
		fmt.Sprintf("summary,sale_count,%d", report.SaleCount),
		fmt.Sprintf("summary,gross_sales,%s", report.GrossSales),
		fmt.Sprintf("summary,cost_of_goods_sold,%s", report.CostOfGoodsSold),
		fmt.Sprintf("summary,expenses,%s", report.Expenses),
		fmt.Sprintf("summary,total_profit,%s", report.TotalProfit),
	}
	for _, row := range report.ProfitPerItem {
		lines = append(lines, fmt.Sprintf("item_profit,%s,%s", row.Name, row.Profit))
	}
	for _, point := range report.SalesOverTime {
		lines = append(lines, fmt.Sprintf("daily_total,%s,%s", point.Date, point.Total))
	}
	return strings.Join(lines, "\n") + "\n"
}

// dashboardHTMLTmpl renders a printable dashboard snapshot. Item names
// are user-controlled and auto-escaped by html/template.
var dashboardHTMLTmpl = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Dashboard ({{.Period}})</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Dashboard ({{.Period}})</h2>
  <p>Sales: {{.SaleCount}}</p>
  <p>Gross: {{.GrossSales}} | COGS: {{.CostOfGoodsSold}} | Expenses: {{.Expenses}} | Profit: {{.TotalProfit}}</p>

  <h3>Most Profitable Items</h3>
  <table>
    <thead><tr><th>Item</th><th>Profit</th></tr></thead>
    <tbody>{{range .ProfitPerItem}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.Profit}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Sales Over Time</h3>
  <table>
    <thead><tr><th>Date</th><th>Total</th></tr></thead>
    <tbody>{{range .SalesOverTime}}<tr><td>{{.Date}}</td><td style="text-align:right;">{{.Total}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

func dashboardToPrintableHTML(report domain.DashboardReport) string {
	var buf bytes.Buffer
	if err := dashboardHTMLTmpl.Execute(&buf, report); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx bodies stay generic so internal
	// details never leak to clients.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
