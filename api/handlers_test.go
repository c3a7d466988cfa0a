package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fonda/opsledger/api"
	"github.com/fonda/opsledger/catalog"
	"github.com/fonda/opsledger/expense"
	"github.com/fonda/opsledger/sales"
	"github.com/fonda/opsledger/store/sqlite"
	"github.com/fonda/opsledger/summary"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	router http.Handler
	store  *sqlite.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := api.NewHandler(
		store,
		expense.NewService(store, store),
		summary.NewEngine(store, store, store),
		store,
		sales.NewRecorder(store),
		zap.NewNop(),
	)
	return &testServer{router: api.NewRouter(handler), store: store}
}

// do runs one request and decodes the JSON response into out (if non-nil).
func (ts *testServer) do(t *testing.T, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out),
			"body: %s", rec.Body.String())
	}
	return rec
}

func (ts *testServer) createProduct(t *testing.T, name string, price int64) string {
	t.Helper()
	var p catalog.Product
	rec := ts.do(t, http.MethodPost, "/api/products", map[string]any{
		"name":  name,
		"price": price,
	}, &p)
	require.Equal(t, http.StatusCreated, rec.Code)
	return p.ID
}

func (ts *testServer) openDay(t *testing.T, date string) map[string]any {
	t.Helper()
	var day map[string]any
	rec := ts.do(t, http.MethodPost, "/api/inventory", map[string]any{"date": date}, &day)
	require.Equal(t, http.StatusCreated, rec.Code, "body: %v", day)
	return day
}

// =============================================================================
// LEDGER LIFECYCLE
// =============================================================================

func TestAPI_Template_AllCollectionsPresent(t *testing.T) {
	ts := newTestServer(t)

	var tpl map[string]any
	rec := ts.do(t, http.MethodGet, "/api/inventory/template", nil, &tpl)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "ACTIVE", tpl["status"])
	for _, key := range []string{"sales", "payroll", "discounts", "collaborations",
		"courtesies", "employeeConsumption", "requestsForNextDay", "receivables"} {
		require.Contains(t, tpl, key)
		assert.NotNil(t, tpl[key], "collection %q must encode as [], not null", key)
	}
}

func TestAPI_SecondActiveDay_409WithBlockingID(t *testing.T) {
	// GIVEN: an open day
	// WHEN: opening another
	// THEN: 409 conflict naming the blocking ledger

	ts := newTestServer(t)
	day := ts.openDay(t, "2026-03-10")

	var errResp map[string]any
	rec := ts.do(t, http.MethodPost, "/api/inventory", map[string]any{"date": "2026-03-11"}, &errResp)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", errResp["code"])
	assert.Equal(t, day["id"], errResp["activeLedgerId"])
	assert.Equal(t, "2026-03-10", errResp["activeDate"])
}

func TestAPI_GetActive(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/inventory/active", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	day := ts.openDay(t, "2026-03-10")
	var active map[string]any
	rec = ts.do(t, http.MethodGet, "/api/inventory/active", nil, &active)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, day["id"], active["id"])
}

func TestAPI_FullDay_OpenSellCloseReopen(t *testing.T) {
	// The whole business day in one pass: open, sell with a courtesy line,
	// patch payroll, close with a declared count, then open the next day.

	ts := newTestServer(t)
	arepa := ts.createProduct(t, "Arepa de Queso", 3000)
	day := ts.openDay(t, "2026-03-10")
	dayID := day["id"].(string)

	// Sell 2 paid + 1 courtesy
	var saleResp map[string]any
	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/inventory/%s/sales", dayID), map[string]any{
		"paymentMethod": "CASH",
		"items": []map[string]any{
			{"productId": arepa, "quantity": 2},
			{"productId": arepa, "quantity": 1, "isCourtesy": true},
		},
	}, &saleResp)
	require.Equal(t, http.StatusCreated, rec.Code)
	sale := saleResp["sale"].(map[string]any)
	total, err := decimal.NewFromString(fmt.Sprint(sale["total"]))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(6000)))

	// Patch payroll wholesale
	var patched map[string]any
	rec = ts.do(t, http.MethodPut, "/api/inventory/"+dayID, map[string]any{
		"payroll": []map[string]any{{"employeeId": "emp-1", "amountPaid": 40000}},
	}, &patched)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, patched["payroll"], 1)

	// Close with a declared count short of the computed 6000
	var closed map[string]any
	rec = ts.do(t, http.MethodPost, "/api/inventory/"+dayID+"/close", map[string]any{
		"finalCash":      5000,
		"totalTransfers": 0,
	}, &closed)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CLOSED", closed["status"])
	totals := closed["totals"].(map[string]any)
	computed, err := decimal.NewFromString(fmt.Sprint(totals["salesCash"]))
	require.NoError(t, err)
	assert.True(t, computed.Equal(decimal.NewFromInt(6000)), "computed total reported alongside declared")

	// Writes to the closed day are rejected
	var errResp map[string]any
	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/inventory/%s/sales", dayID), map[string]any{
		"paymentMethod": "CASH",
		"items":         []map[string]any{{"productId": arepa, "quantity": 1}},
	}, &errResp)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", errResp["code"])

	// The next day can open now
	ts.openDay(t, "2026-03-11")
}

func TestAPI_CommitSale_UnknownProduct_400(t *testing.T) {
	ts := newTestServer(t)
	day := ts.openDay(t, "2026-03-10")

	rec := ts.do(t, http.MethodPost, fmt.Sprintf("/api/inventory/%s/sales", day["id"]), map[string]any{
		"paymentMethod": "CASH",
		"items":         []map[string]any{{"productId": "ghost", "quantity": 1}},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ListMonth(t *testing.T) {
	ts := newTestServer(t)
	day := ts.openDay(t, "2026-03-10")
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/inventory/%s/close", day["id"]), map[string]any{
		"finalCash": 0, "totalTransfers": 0,
	}, nil)
	ts.openDay(t, "2026-04-01")

	var march []map[string]any
	rec := ts.do(t, http.MethodGet, "/api/inventory/month?year=2026&month=3", nil, &march)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, march, 1)
	assert.Equal(t, day["id"], march[0]["id"])

	rec = ts.do(t, http.MethodGet, "/api/inventory/month?year=2026&month=13", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PURCHASES
// =============================================================================

func TestAPI_PurchaseLifecycle(t *testing.T) {
	ts := newTestServer(t)
	day := ts.openDay(t, "2026-03-10")
	dayID := day["id"].(string)

	// Create: total is derived (2 * 20000), whatever the client thinks
	var created map[string]any
	rec := ts.do(t, http.MethodPost, "/api/purchases", map[string]any{
		"inventoryId": dayID,
		"items":       []map[string]any{{"name": "Gas", "unitPrice": 20000, "quantity": 2}},
	}, &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	total, err := decimal.NewFromString(fmt.Sprint(created["total"]))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(40000)))

	// List by owning day
	var list []map[string]any
	rec = ts.do(t, http.MethodGet, "/api/purchases?inventoryId="+dayID, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list, 1)

	// The owning day's derived totals pick the purchase up
	var withPurchase map[string]any
	rec = ts.do(t, http.MethodGet, "/api/inventory/"+dayID, nil, &withPurchase)
	require.Equal(t, http.StatusOK, rec.Code)
	totals := withPurchase["totals"].(map[string]any)
	expensesTotal, err := decimal.NewFromString(fmt.Sprint(totals["expensesTotal"]))
	require.NoError(t, err)
	assert.True(t, expensesTotal.Equal(decimal.NewFromInt(40000)))

	// Update items; total follows
	id := created["id"].(string)
	var updated map[string]any
	rec = ts.do(t, http.MethodPut, "/api/purchases/"+id, map[string]any{
		"items": []map[string]any{{"name": "Gas", "unitPrice": 20000, "quantity": 1}},
	}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	total, err = decimal.NewFromString(fmt.Sprint(updated["total"]))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(20000)))

	// Delete
	rec = ts.do(t, http.MethodDelete, "/api/purchases/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/purchases/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_PurchaseAgainstClosedDay_409(t *testing.T) {
	ts := newTestServer(t)
	day := ts.openDay(t, "2026-03-10")
	dayID := day["id"].(string)
	ts.do(t, http.MethodPost, "/api/inventory/"+dayID+"/close", map[string]any{
		"finalCash": 0, "totalTransfers": 0,
	}, nil)

	var errResp map[string]any
	rec := ts.do(t, http.MethodPost, "/api/purchases", map[string]any{
		"inventoryId": dayID,
		"items":       []map[string]any{{"name": "Gas", "unitPrice": 20000, "quantity": 1}},
	}, &errResp)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_state", errResp["code"])
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestAPI_DashboardSummary(t *testing.T) {
	ts := newTestServer(t)
	arepa := ts.createProduct(t, "Arepa de Queso", 3000)
	day := ts.openDay(t, "2026-03-10")
	dayID := day["id"].(string)

	ts.do(t, http.MethodPost, "/api/inventory/"+dayID+"/sales", map[string]any{
		"paymentMethod": "TRANSFER",
		"items":         []map[string]any{{"productId": arepa, "quantity": 2}},
	}, nil)
	ts.do(t, http.MethodPost, "/api/purchases", map[string]any{
		"inventoryId": dayID,
		"items":       []map[string]any{{"name": "Gas", "unitPrice": 1000, "quantity": 1}},
	}, nil)
	ts.do(t, http.MethodPost, "/api/inventory/"+dayID+"/close", map[string]any{
		"finalCash": 0, "totalTransfers": 6000,
	}, nil)

	var s map[string]any
	rec := ts.do(t, http.MethodGet, "/api/dashboard/summary?startDate=2026-03-01&endDate=2026-03-31", nil, &s)
	require.Equal(t, http.StatusOK, rec.Code)

	income := s["totalIncome"].(map[string]any)
	transfers, err := decimal.NewFromString(fmt.Sprint(income["transfers"]))
	require.NoError(t, err)
	assert.True(t, transfers.Equal(decimal.NewFromInt(6000)))

	balance, err := decimal.NewFromString(fmt.Sprint(s["balance"]))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5000)), "6000 income - 1000 expenses")
	assert.EqualValues(t, 1, s["ledgerCount"])
}

func TestAPI_DashboardSummary_MissingRange_400(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/dashboard/summary", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CATALOG
// =============================================================================

func TestAPI_ProductCRUDAndUsers(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createProduct(t, "Gaseosa", 2500)

	var products []catalog.Product
	rec := ts.do(t, http.MethodGet, "/api/products", nil, &products)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, products, 1)

	var updated catalog.Product
	rec = ts.do(t, http.MethodPut, "/api/products/"+id, map[string]any{
		"name": "Gaseosa", "price": 2800,
	}, &updated)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(2800)))

	rec = ts.do(t, http.MethodDelete, "/api/products/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	require.NoError(t, ts.store.SeedStaff(context.Background(), []catalog.Staff{
		{ID: "emp-1", FirstName: "Luisa", LastName: "Gomez", Role: "cook"},
	}))
	var users []map[string]any
	rec = ts.do(t, http.MethodGet, "/api/users", nil, &users)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, users, 1)
	assert.Equal(t, "Luisa", users[0]["firstName"])
}

func TestAPI_NegativeProductPrice_400(t *testing.T) {
	ts := newTestServer(t)
	var errResp map[string]any
	rec := ts.do(t, http.MethodPost, "/api/products", map[string]any{
		"name": "Arepa", "price": -1,
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", errResp["code"])
	details := errResp["details"].(map[string]any)
	assert.Equal(t, "price", details["field"])
}
