package invoice_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pharma-billing/internal/invoice"
)

func newRouter(t *testing.T) (http.Handler, *stubStore) {
	t.Helper()
	svc, store, _ := newService(t)
	h := invoice.NewHandler(svc)
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		v.Post("/invoices/preview", h.Preview)
		v.Post("/invoices/lines", h.SeedLine)
		v.Post("/invoices/lines/edit", h.EditLine)
		v.Post("/invoices", h.Submit)
		v.Get("/invoices/{id}", h.Get)
		v.Get("/amount-in-words", h.AmountInWords)
	})
	return r, store
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr.Code, env
}

func TestPreviewHandlerCoercesNumericStrings(t *testing.T) {
	h, _ := newRouter(t)
	body := `{
		"buyerState": "MH",
		"lines": [
			{"productId": "p1", "quantitySold": "10", "baseRate": 100, "taxRatePercent": "18"},
			{"productId": "p2", "quantitySold": 5, "baseRate": "200", "taxRatePercent": 12, "schemeDiscountPercent": "abc"}
		],
		"invoiceDiscountPercent": "",
		"roundingPolicy": "nearest_1"
	}`
	code, env := do(t, h, http.MethodPost, "/api/v1/invoices/preview", body)
	require.Equal(t, http.StatusOK, code)

	var out invoice.Preview
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Draft.Lines, 2)
	require.Equal(t, 1180.0, out.Draft.Lines[0].TotalAmount)
	require.Zero(t, out.Draft.Lines[1].SchemeDiscountPercent)
	require.Equal(t, 1120.0, out.Draft.Lines[1].TotalAmount)
	require.Equal(t, 2300.0, out.Totals.Payable)
	require.Equal(t, "inter_state", string(out.Regime))
	require.Equal(t, "Two Thousand Three Hundred Rupees Only", out.AmountInWords)
}

func TestPreviewHandlerValidation(t *testing.T) {
	h, _ := newRouter(t)

	code, env := do(t, h, http.MethodPost, "/api/v1/invoices/preview", `{"lines": [{"quantitySold": 1}]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.Contains(t, string(env.Error.Details), "ProductID")

	code, env = do(t, h, http.MethodPost, "/api/v1/invoices/preview", `{"roundingPolicy": "banker"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	code, env = do(t, h, http.MethodPost, "/api/v1/invoices/preview", `{not json`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestSeedLineHandler(t *testing.T) {
	h, _ := newRouter(t)

	code, env := do(t, h, http.MethodPost, "/api/v1/invoices/lines", `{"productId": "p2"}`)
	require.Equal(t, http.StatusCreated, code)
	var line invoice.Line
	require.NoError(t, json.Unmarshal(env.Data, &line))
	require.Equal(t, "Cetirizine 10", line.ProductName)
	require.Equal(t, 56.0, line.TotalAmount)
	require.NotNil(t, line.AvailableStock)
	require.Equal(t, 100.0, *line.AvailableStock)

	code, env = do(t, h, http.MethodPost, "/api/v1/invoices/lines", `{"productId": "nope"}`)
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestEditLineHandlerKeepsTypedTotal(t *testing.T) {
	h, _ := newRouter(t)
	body := `{
		"line": {"productId": "p1", "quantitySold": 10, "baseRate": 100, "taxRatePercent": 18},
		"field": "totalAmount",
		"value": "1000"
	}`
	code, env := do(t, h, http.MethodPost, "/api/v1/invoices/lines/edit", body)
	require.Equal(t, http.StatusOK, code)
	var line invoice.Line
	require.NoError(t, json.Unmarshal(env.Data, &line))
	require.Equal(t, 1000.0, line.TotalAmount)
	require.Equal(t, 847.46, line.TaxableAmount)
	require.InDelta(t, 84.7457627, line.BaseRate, 1e-6)
}

func TestEditLineHandlerClampsToStock(t *testing.T) {
	h, _ := newRouter(t)
	body := `{
		"line": {"productId": "p1", "quantitySold": 1, "freeQuantity": 2, "baseRate": 100, "taxRatePercent": 18},
		"field": "quantity_sold",
		"value": 50,
		"availableStock": 10
	}`
	code, env := do(t, h, http.MethodPost, "/api/v1/invoices/lines/edit", body)
	require.Equal(t, http.StatusOK, code)
	var line invoice.Line
	require.NoError(t, json.Unmarshal(env.Data, &line))
	require.Equal(t, 8.0, line.QuantitySold)
	require.Equal(t, 944.0, line.TotalAmount)

	code, env = do(t, h, http.MethodPost, "/api/v1/invoices/lines/edit", `{"line": {"productId": "p1"}, "field": "colour", "value": 1}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestSubmitAndGetHandlers(t *testing.T) {
	h, store := newRouter(t)
	body := `{"lines": [{"productId": "p1", "productName": "Paracetamol 500", "quantitySold": 10, "baseRate": 100, "taxRatePercent": 18}]}`
	code, env := do(t, h, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, 1, store.saves)

	var sub invoice.Submission
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	require.Equal(t, 1180.0, sub.Record.Payable)

	code, env = do(t, h, http.MethodGet, "/api/v1/invoices/"+sub.Record.ID.String(), "")
	require.Equal(t, http.StatusOK, code)
	var got invoice.Submission
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Equal(t, sub.Record.Number, got.Record.Number)
	require.Equal(t, 1180.0, got.Totals.Payable)
	require.Equal(t, 1180.0, got.Draft.Lines[0].TotalAmount)

	code, env = do(t, h, http.MethodGet, "/api/v1/invoices/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestSubmitHandlerErrors(t *testing.T) {
	h, store := newRouter(t)

	code, env := do(t, h, http.MethodPost, "/api/v1/invoices", `{"lines": []}`)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, "EMPTY_INVOICE", env.Error.Code)

	body := `{"lines": [{"productId": "p1", "quantitySold": 101, "baseRate": 100, "taxRatePercent": 18}]}`
	code, env = do(t, h, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)
	require.JSONEq(t, `[{"productId":"p1","requested":101,"available":100}]`, string(env.Error.Details))
	require.Zero(t, store.saves)
}

func TestAmountInWordsHandler(t *testing.T) {
	h, _ := newRouter(t)

	code, env := do(t, h, http.MethodGet, "/api/v1/amount-in-words?amount=150075.50", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"amount":150075.5,"words":"One Lakh Fifty Thousand Seventy Five Rupees and Fifty Paise Only"}`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/api/v1/amount-in-words?amount=abc", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"amount":0,"words":"Zero Rupees Only"}`, string(env.Data))
}
