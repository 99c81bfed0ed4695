package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenledger/internal/config"
	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/server/handlers"
	"github.com/mamadbah2/kitchenledger/internal/service/commands"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
)

type fakeSnapshots struct{ limit int64 }

func (f *fakeSnapshots) ListSnapshots(_ context.Context, limit int64) ([]models.ReportSnapshot, error) {
	f.limit = limit
	return []models.ReportSnapshot{{PeriodStart: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), NetIncome: 205}}, nil
}

type testServer struct {
	t         *testing.T
	handler   http.Handler
	snapshots *fakeSnapshots
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	svc := commands.NewService(memory.New(), config.DefaultEngine(), nil)
	snaps := &fakeSnapshots{}
	h := Handlers{
		Catalog:  handlers.NewCatalogHandler(svc, nil),
		Expenses: handlers.NewExpenseHandler(svc, nil),
		Reports:  handlers.NewReportHandler(svc, snaps, nil),
		Payables: handlers.NewPayablesHandler(svc, nil),
	}
	return &testServer{t: t, handler: New(h, nil), snapshots: snaps}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) mustDo(method, path string, body any, status int) *httptest.ResponseRecorder {
	s.t.Helper()
	rec := s.do(method, path, body)
	require.Equal(s.t, status, rec.Code, rec.Body.String())
	return rec
}

func (s *testServer) seed() {
	s.mustDo(http.MethodPost, "/api/v1/vendors", models.Vendor{ID: "sysco", Name: "Sysco"}, http.StatusOK)
	s.mustDo(http.MethodPost, "/api/v1/categories", models.Category{ID: "supplies", Name: "Supplies", Group: models.GroupOperating}, http.StatusOK)
	s.mustDo(http.MethodPut, "/api/v1/ingredients/beef", models.Ingredient{
		Name: "Ground beef", PurchasePrice: 40, PurchaseUnit: "case", UsageUnit: "lb", UnitConversionFactor: 10, YieldPercent: 0.8,
	}, http.StatusOK)
	s.mustDo(http.MethodPut, "/api/v1/menu-items/burger", models.MenuItem{
		Name: "Burger", Category: models.MenuFood, SellingPrice: 15, QFactor: 0.5, TargetCostPercent: 30,
	}, http.StatusOK)
	s.mustDo(http.MethodPut, "/api/v1/menu-items/burger/recipe/beef", map[string]any{"quantity_used": 0.5}, http.StatusOK)
	s.mustDo(http.MethodPut, "/api/v1/sales", map[string]any{
		"date": "2025-01-06", "menu_item_id": "burger", "quantity_sold": 20, "discounts": 10,
	}, http.StatusNoContent)
	s.mustDo(http.MethodPost, "/api/v1/mapping-rules", map[string]any{
		"vendor_id": "sysco", "match_type": models.MatchContains, "match_value": "napkin", "category_id": "supplies",
	}, http.StatusOK)
	s.mustDo(http.MethodPost, "/api/v1/expenses", map[string]any{
		"id": "exp-1", "vendor_id": "sysco", "date": "2025-01-06",
		"lines": []map[string]any{
			{"id": "l-napkin", "raw_description": "Paper napkins 500ct", "quantity": 1, "unit_price": 25},
		},
	}, http.StatusOK)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := s.mustDo(http.MethodGet, "/healthz", nil, http.StatusOK)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLedgerFlowOverHTTP(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.seed()

	rec := s.mustDo(http.MethodGet, "/api/v1/menu-items/burger/cost", nil, http.StatusOK)
	var cost struct {
		PlateCost float64 `json:"plate_cost"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cost))
	require.Equal(t, 3.0, cost.PlateCost)

	s.mustDo(http.MethodPost, "/api/v1/mappings/apply", map[string]any{"expense_id": "exp-1"}, http.StatusOK)

	rec = s.mustDo(http.MethodGet, "/api/v1/reports/pnl?start=2025-01-06&end=2025-01-12", nil, http.StatusOK)
	var report reporting.PeriodReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 290.0, report.NetRevenue)
	require.Equal(t, 60.0, report.COGS)
	require.Equal(t, 25.0, report.Operating)
	require.Equal(t, 205.0, report.NetIncome)
	require.Zero(t, report.UnmappedExpense)

	rec = s.mustDo(http.MethodGet, "/api/v1/reports/export.xlsx?start=2025-01-06&end=2025-01-12", nil, http.StatusOK)
	require.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	require.NotZero(t, rec.Body.Len())
}

func TestErrorStatuses(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.seed()

	s.mustDo(http.MethodGet, "/api/v1/ingredients/truffle/cost", nil, http.StatusNotFound)
	s.mustDo(http.MethodGet, "/api/v1/reports/pnl?start=2025-01-12&end=2025-01-06", nil, http.StatusBadRequest)
	s.mustDo(http.MethodGet, "/api/v1/reports/pnl?start=2025-01-06&end=2025-01-12&compare=yesterday", nil, http.StatusBadRequest)
	s.mustDo(http.MethodDelete, "/api/v1/ingredients/beef", nil, http.StatusConflict)
	s.mustDo(http.MethodPost, "/api/v1/mappings/apply", map[string]any{}, http.StatusBadRequest)
	s.mustDo(http.MethodPut, "/api/v1/sales", map[string]any{"date": "06/01/2025", "menu_item_id": "burger"}, http.StatusBadRequest)
	s.mustDo(http.MethodGet, "/api/v1/reports/1099?year=soon", nil, http.StatusBadRequest)

	rec := s.mustDo(http.MethodPost, "/api/v1/mapping-rules", models.MappingRule{
		VendorID: "sysco", MatchType: models.MatchRegex, MatchValue: "(beef", CategoryID: "supplies",
	}, http.StatusBadRequest)
	require.Contains(t, rec.Body.String(), `"field":"match_value"`)
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.seed()

	rec := s.mustDo(http.MethodPost, "/api/v1/invoices", map[string]any{
		"expense_id": "exp-1", "invoice_number": "INV-1", "due_date": "2025-02-05",
	}, http.StatusCreated)
	var inv models.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	require.Equal(t, models.InvoiceDraft, inv.Status)
	require.Equal(t, 25.0, inv.Total)

	s.mustDo(http.MethodPost, "/api/v1/invoices/"+inv.ID+"/post", nil, http.StatusConflict)
	s.mustDo(http.MethodPost, "/api/v1/invoices/"+inv.ID+"/approve", nil, http.StatusOK)
	s.mustDo(http.MethodPost, "/api/v1/invoices/"+inv.ID+"/post", nil, http.StatusOK)
	s.mustDo(http.MethodDelete, "/api/v1/invoices/"+inv.ID, nil, http.StatusConflict)

	rec = s.mustDo(http.MethodPost, "/api/v1/batches", map[string]any{"invoice_ids": []string{inv.ID}}, http.StatusCreated)
	var batch models.PaymentBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))

	s.mustDo(http.MethodPost, "/api/v1/batches/"+batch.ID+"/approve", nil, http.StatusOK)
	rec = s.mustDo(http.MethodPost, "/api/v1/batches/"+batch.ID+"/process", map[string]any{"check_start": 500}, http.StatusOK)
	var processed struct {
		Batch    models.PaymentBatch    `json:"batch"`
		Payments []models.VendorPayment `json:"payments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &processed))
	require.Equal(t, models.BatchCompleted, processed.Batch.Status)
	require.Len(t, processed.Payments, 1)
	require.Equal(t, 500, processed.Payments[0].CheckNumber)

	s.mustDo(http.MethodPost, "/api/v1/batches", map[string]any{"invoice_ids": []string{inv.ID}}, http.StatusConflict)
	s.mustDo(http.MethodPost, "/api/v1/expenses", map[string]any{
		"id": "exp-1", "vendor_id": "sysco", "date": "2025-01-06",
		"lines": []map[string]any{{"id": "l-napkin", "raw_description": "Paper napkins 500ct", "line_total": 999}},
	}, http.StatusConflict)
	s.mustDo(http.MethodPost, "/api/v1/mappings/apply", map[string]any{"expense_id": "exp-1"}, http.StatusConflict)
}

func TestMappingRuleActiveFlag(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	s.seed()

	rec := s.mustDo(http.MethodPost, "/api/v1/mapping-rules", map[string]any{
		"vendor_id": "sysco", "match_type": models.MatchContains, "match_value": "foil", "category_id": "supplies", "active": false,
	}, http.StatusOK)
	require.Contains(t, rec.Body.String(), `"active":false`)

	rec = s.mustDo(http.MethodPost, "/api/v1/mapping-rules", map[string]any{
		"vendor_id": "sysco", "match_type": models.MatchContains, "match_value": "cups", "category_id": "supplies",
	}, http.StatusOK)
	require.Contains(t, rec.Body.String(), `"active":true`)
}

func TestSnapshotsListing(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := s.mustDo(http.MethodGet, "/api/v1/reports/snapshots?limit=4", nil, http.StatusOK)
	require.Equal(t, int64(4), s.snapshots.limit)
	require.Contains(t, rec.Body.String(), `"net_income":205`)

	s.mustDo(http.MethodGet, "/api/v1/reports/snapshots?limit=-1", nil, http.StatusBadRequest)
}
