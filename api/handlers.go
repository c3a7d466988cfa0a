/*
handlers.go - HTTP API handlers for the daily ledger engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Ledgers:
    GET    /api/inventory/template     Empty day skeleton for the form UI
    POST   /api/inventory              Open a new day (409 if one is ACTIVE)
    GET    /api/inventory/active       The currently ACTIVE day, if any
    GET    /api/inventory/month        All days in a calendar month
    GET    /api/inventory/{id}         One day with derived totals
    PUT    /api/inventory/{id}         Patch an ACTIVE day
    POST   /api/inventory/{id}/close   ACTIVE -> CLOSED with declared cash
    POST   /api/inventory/{id}/sales   Commit a register cart

  Purchases:
    POST   /api/purchases              Record a purchase against a day
    GET    /api/purchases              List by inventoryId or date range
    GET    /api/purchases/{id}         One purchase
    PUT    /api/purchases/{id}         Update (total recomputed server-side)
    DELETE /api/purchases/{id}         Remove a purchase

  Reporting:
    GET    /api/dashboard/summary      Aggregate a date range

  Catalog:
    GET    /api/products               Sellable products
    POST   /api/products               Create product
    PUT    /api/products/{id}          Update product
    DELETE /api/products/{id}          Delete product
    GET    /api/users                  Staff roster for payroll pickers

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input shape (validator tags on DTOs)
  3. Call domain logic (ledger, sales, expense, summary)
  4. Serialize response
  5. Map domain errors to HTTP status

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (second ACTIVE day) or invalid state (writing CLOSED)
  - 500: Storage and unexpected errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public;
  the server is meant to sit on a trusted local network.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Nightly stale-register check
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/expense"
	"github.com/fonda/opsledger/ledger"
	"github.com/fonda/opsledger/sales"
	"github.com/fonda/opsledger/summary"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for the HTTP layer.
type Handler struct {
	Ledgers  ledger.Store
	Expenses *expense.Service
	Summary  *summary.Engine
	Catalog  catalog.Store
	Sales    *sales.Recorder

	validate *validator.Validate
	log      *zap.Logger
}

// NewHandler wires the HTTP layer to its services.
func NewHandler(ledgers ledger.Store, expenses *expense.Service, sum *summary.Engine, cat catalog.Store, rec *sales.Recorder, log *zap.Logger) *Handler {
	return &Handler{
		Ledgers:  ledgers,
		Expenses: expenses,
		Summary:  sum,
		Catalog:  cat,
		Sales:    rec,
		validate: validator.New(),
		log:      log,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Everything the
// domain did not classify is a 500; the original cause goes to the log, not
// the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsValidation(err):
		resp := ErrorResponse{Error: err.Error(), Code: "validation"}
		var invalid *ledger.ValidationError
		if errors.As(err, &invalid) {
			resp.Details = map[string]string{"field": invalid.Field}
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case ledger.IsConflict(err):
		resp := ErrorResponse{Error: err.Error(), Code: "conflict"}
		var conflict *ledger.ConflictError
		if errors.As(err, &conflict) {
			resp.ActiveLedgerID = conflict.ActiveLedgerID
			resp.ActiveDate = conflict.ActiveDate.String()
		}
		writeJSON(w, http.StatusConflict, resp)
	case ledger.IsInvalidState(err):
		writeError(w, http.StatusConflict, err.Error(), "invalid_state")
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

// decode unmarshals and shape-validates a request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return ledger.NewValidationError("body", "malformed JSON: %v", err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return ledger.NewValidationError("body", "%v", err)
	}
	return nil
}

// priceLookup resolves current catalog prices for derived totals. A failed
// catalog read degrades to zero prices rather than failing the whole read;
// old days must stay readable.
func (h *Handler) priceLookup(ctx context.Context) ledger.PriceLookup {
	snap, err := catalog.Load(ctx, h.Catalog)
	if err != nil {
		h.log.Warn("catalog unavailable, totals priced at zero", zap.Error(err))
		return func(string) (decimal.Decimal, bool) { return decimal.Zero, false }
	}
	return snap.PriceOf
}

// withTotals pairs a ledger with its derived totals. Expenses live in their
// own store, so they are fetched here and folded into the same read model.
func (h *Handler) withTotals(r *http.Request, l *ledger.DailyLedger) (LedgerResponse, error) {
	t := l.Totals(h.priceLookup(r.Context()))
	expenses, err := h.Expenses.ListByLedger(r.Context(), l.ID)
	if err != nil {
		return LedgerResponse{}, err
	}
	t.ApplyExpenses(expenses)
	return LedgerResponse{DailyLedger: l, Totals: t}, nil
}

// =============================================================================
// LEDGER ENDPOINTS
// =============================================================================

// GetTemplate returns the empty day skeleton. Every collection is present and
// empty so the form never special-cases missing fields.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ledger.Template())
}

// CreateLedger opens a new business day.
func (h *Handler) CreateLedger(w http.ResponseWriter, r *http.Request) {
	var req CreateLedgerRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	var date ledger.Date
	if req.Date != "" {
		parsed, err := ledger.ParseDate(req.Date)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		date = parsed
	}

	l := ledger.New(date)
	if req.BaseCash != nil {
		if req.BaseCash.IsNegative() {
			h.writeDomainError(w, ledger.NewValidationError("baseCash", "base cash cannot be negative"))
			return
		}
		l.BaseCash = *req.BaseCash
	}
	l.ID = uuid.NewString()

	if err := h.Ledgers.CreateLedger(r.Context(), l); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.log.Info("ledger opened", zap.String("id", l.ID), zap.String("date", l.Date.String()))
	resp, err := h.withTotals(r, l)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetActiveLedger returns the currently open day, 404 when none.
func (h *Handler) GetActiveLedger(w http.ResponseWriter, r *http.Request) {
	l, err := h.Ledgers.GetActiveLedger(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp, err := h.withTotals(r, l)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLedger returns one day by id, with derived totals.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	l, err := h.Ledgers.GetLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp, err := h.withTotals(r, l)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMonth returns every ledger in a calendar month, ordered by date.
func (h *Handler) ListMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		h.writeDomainError(w, ledger.NewValidationError("year", "year must be an integer"))
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		h.writeDomainError(w, ledger.NewValidationError("month", "month must be 1-12"))
		return
	}

	from, to := ledger.MonthRange(year, time.Month(month))
	ledgers, err := h.Ledgers.ListLedgersInRange(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	prices := h.priceLookup(r.Context())
	out := make([]LedgerResponse, len(ledgers))
	for i, l := range ledgers {
		t := l.Totals(prices)
		expenses, err := h.Expenses.ListByLedger(r.Context(), l.ID)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		t.ApplyExpenses(expenses)
		out[i] = LedgerResponse{DailyLedger: l, Totals: t}
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdateLedger applies a wholesale patch to an ACTIVE day.
func (h *Handler) UpdateLedger(w http.ResponseWriter, r *http.Request) {
	var p ledger.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeDomainError(w, ledger.NewValidationError("body", "malformed JSON: %v", err))
		return
	}

	l, err := h.Ledgers.GetLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := l.ApplyPatch(p); err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.Ledgers.SaveLedger(r.Context(), l); err != nil {
		h.writeDomainError(w, err)
		return
	}
	resp, err := h.withTotals(r, l)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseLedger finalizes a day with the declared register count.
func (h *Handler) CloseLedger(w http.ResponseWriter, r *http.Request) {
	var req CloseLedgerRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	l, err := h.Ledgers.GetLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := l.Close(req.FinalCash, req.TotalTransfers); err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.Ledgers.SaveLedger(r.Context(), l); err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.log.Info("ledger closed",
		zap.String("id", l.ID),
		zap.String("date", l.Date.String()),
		zap.String("declaredFinalCash", l.FinalCash.String()))
	resp, err := h.withTotals(r, l)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CommitSale builds a cart from the request lines and commits it as one sale.
// Prices come from the catalog at commit time; the client never sets them.
func (h *Handler) CommitSale(w http.ResponseWriter, r *http.Request) {
	var req CommitSaleRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	snap, err := catalog.Load(r.Context(), h.Catalog)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	cart := sales.NewCart(snap)
	for i, line := range req.Items {
		if err := cart.AddItem(line.ProductID, line.Quantity); err != nil {
			h.writeDomainError(w, err)
			return
		}
		if line.IsCourtesy {
			if err := cart.ToggleCourtesy(i); err != nil {
				h.writeDomainError(w, err)
				return
			}
		}
	}

	sale, err := h.Sales.Commit(r.Context(), cart, ledger.PaymentMethod(req.PaymentMethod), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, SaleResponse{Sale: sale})
}

// =============================================================================
// PURCHASE ENDPOINTS
// =============================================================================

// CreateExpense records a purchase against a day.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	in := expense.Input{
		Items:              toExpenseItems(req.Items),
		InvoiceEvidenceURL: req.InvoiceEvidenceURL,
	}
	if req.Date != "" {
		date, err := ledger.ParseDate(req.Date)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		in.Date = date
	}

	e, err := h.Expenses.Create(r.Context(), req.InventoryID, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// ListExpenses lists purchases either by owning day (?inventoryId=) or by
// date range (?startDate=&endDate=).
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if id := q.Get("inventoryId"); id != "" {
		out, err := h.Expenses.ListByLedger(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	from, err := ledger.ParseDate(q.Get("startDate"))
	if err != nil {
		h.writeDomainError(w, ledger.NewValidationError("startDate", "startDate is required as YYYY-MM-DD"))
		return
	}
	to, err := ledger.ParseDate(q.Get("endDate"))
	if err != nil {
		h.writeDomainError(w, ledger.NewValidationError("endDate", "endDate is required as YYYY-MM-DD"))
		return
	}
	out, err := h.Expenses.ListRange(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetExpense returns one purchase by id.
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := h.Expenses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// UpdateExpense replaces purchase fields; totals are recomputed server-side.
func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req UpdateExpenseRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}

	var p expense.Patch
	if req.Items != nil {
		items := toExpenseItems(*req.Items)
		p.Items = &items
	}
	if req.Date != nil {
		date, err := ledger.ParseDate(*req.Date)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		p.Date = &date
	}
	p.InvoiceEvidenceURL = req.InvoiceEvidenceURL

	e, err := h.Expenses.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteExpense removes a purchase. Blocked once the owning day is CLOSED.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.Expenses.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REPORTING ENDPOINTS
// =============================================================================

// GetSummary aggregates a date range for the dashboard.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := ledger.ParseDate(q.Get("startDate"))
	if err != nil {
		h.writeDomainError(w, ledger.NewValidationError("startDate", "startDate is required as YYYY-MM-DD"))
		return
	}
	end, err := ledger.ParseDate(q.Get("endDate"))
	if err != nil {
		h.writeDomainError(w, ledger.NewValidationError("endDate", "endDate is required as YYYY-MM-DD"))
		return
	}

	s, err := h.Summary.Summarize(r.Context(), start, end)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListProducts returns the sellable catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.Products(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// CreateProduct adds a catalog product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}
	if req.Price.IsNegative() {
		h.writeDomainError(w, ledger.NewValidationError("price", "price cannot be negative"))
		return
	}

	p := &catalog.Product{ID: uuid.NewString(), Name: req.Name, Price: req.Price}
	if err := h.Catalog.CreateProduct(r.Context(), p); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct replaces a product's name and price. Committed sales keep the
// price they were sold at; only future carts see the change.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := h.decode(r, &req); err != nil {
		h.writeDomainError(w, err)
		return
	}
	if req.Price.IsNegative() {
		h.writeDomainError(w, ledger.NewValidationError("price", "price cannot be negative"))
		return
	}

	p := &catalog.Product{ID: chi.URLParam(r, "id"), Name: req.Name, Price: req.Price}
	if err := h.Catalog.UpdateProduct(r.Context(), p); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteProduct removes a product from the catalog. Historical ledgers that
// reference it keep working; its courtesies simply price at zero afterwards.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListStaff returns the staff roster for payroll and consumption pickers.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Catalog.Staff(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStaffDTOs(staff))
}
