package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NabeelMohideen/StockSync/internal/domain"
	"github.com/NabeelMohideen/StockSync/internal/service"
	"github.com/NabeelMohideen/StockSync/internal/store/memory"
)

// newTestAPI builds a full API with a seeded in-memory store, real
// AuthManager and real Service so handler tests exercise the complete
// request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, logger, time.Minute)
	auth := NewAuthManager("test-secret-key", time.Hour, svc)

	return New(svc, auth, "*", logger)
}

func loginAs(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func fetchCSRFToken(t *testing.T, handler http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("csrf token fetch failed: %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	return body["csrf_token"]
}

// doJSON issues an authenticated request with a CSRF token and a JSON
// body when payload is non-nil.
func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, csrf string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "badpass",
	})

	// The loginLimiter allows 5 attempts per minute per client IP.
	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after 6 attempts, got %d", lastCode)
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_ListWithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["products"] == nil {
		t.Fatalf("expected products key in response, got %v", body)
	}
}

func TestHandleProducts_CreateForbiddenForViewer(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "viewer", "sales123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", token, csrf, map[string]any{
		"name":  "Test TV",
		"brand": "Acme",
		"sku":   "TV-ACME-1",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for report viewer, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleUsers_ForbiddenForAdministrator(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "manager", "admin123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/users", token, "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for administrator on users, got %d", rec.Code)
	}
}

func TestCheckout_RequiresCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "sales", "sales123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, "", map[string]any{
		"shop_id": "shop-colombo",
		"lines": []map[string]any{
			{"product_id": "prod-hdmi", "quantity": 1},
		},
		"customer": map[string]any{"name": "Walk In"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCheckout_HappyPath(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "sales", "sales123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, csrf, map[string]any{
		"shop_id": "shop-colombo",
		"lines": []map[string]any{
			{"product_id": "prod-samsung-43", "quantity": 1, "serial_number": "SN-TEST-001"},
			{"product_id": "prod-hdmi", "quantity": 2},
		},
		"customer":       map[string]any{"name": "Nimal Perera", "phone": "0771234567"},
		"payment_method": "cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if len(resp.Sale.Items) != 2 {
		t.Fatalf("expected 2 sale items, got %d", len(resp.Sale.Items))
	}
	if len(resp.Warranties) != 2 {
		t.Fatalf("expected 2 warranties, got %d", len(resp.Warranties))
	}
	if resp.CreditSale != nil {
		t.Fatalf("cash sale must not open a credit sale")
	}
}

func TestCheckout_InsufficientStock(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "sales", "sales123")
	csrf := fetchCSRFToken(t, handler)

	// shop-colombo only carries 4 units of prod-samsung-55.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, csrf, map[string]any{
		"shop_id": "shop-colombo",
		"lines": []map[string]any{
			{"product_id": "prod-samsung-55", "quantity": 99, "serial_number": "SN-BULK"},
		},
		"customer": map[string]any{"name": "Bulk Buyer", "phone": "0770000000"},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestCheckout_SalesPersonCannotUseForeignShop(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "sales", "sales123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, csrf, map[string]any{
		"shop_id": "shop-kandy",
		"lines": []map[string]any{
			{"product_id": "prod-hdmi", "quantity": 1},
		},
		"customer": map[string]any{"name": "Walk In"},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign shop, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestTransferLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "admin", "admin123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/transfers", token, csrf, map[string]any{
		"product_id": "prod-samsung-55",
		"to_shop_id": "shop-kandy",
		"quantity":   4,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create transfer: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var transfer domain.StockTransfer
	if err := json.NewDecoder(rec.Body).Decode(&transfer); err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if transfer.Status != domain.TransferStatusPending {
		t.Fatalf("expected pending, got %s", transfer.Status)
	}

	for _, step := range []struct {
		action string
		status string
	}{
		{"ship", domain.TransferStatusInTransit},
		{"deliver", domain.TransferStatusCompleted},
	} {
		rec = doJSON(t, handler, http.MethodPost, "/api/v1/transfers/"+transfer.ID+"/"+step.action, token, csrf, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (body: %s)", step.action, rec.Code, rec.Body.String())
		}
		if err := json.NewDecoder(rec.Body).Decode(&transfer); err != nil {
			t.Fatalf("decode transfer after %s: %v", step.action, err)
		}
		if transfer.Status != step.status {
			t.Fatalf("after %s: expected %s, got %s", step.action, step.status, transfer.Status)
		}
	}

	// A completed transfer is terminal.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/transfers/"+transfer.ID+"/cancel", token, csrf, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel on completed: expected 409, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestTransferCreate_ForbiddenForSalesPerson(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "sales", "sales123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/transfers", token, csrf, map[string]any{
		"product_id": "prod-hdmi",
		"to_shop_id": "shop-kandy",
		"quantity":   1,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSalesReportCSVExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	salesToken := loginAs(t, handler, "sales", "sales123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", salesToken, csrf, map[string]any{
		"shop_id": "shop-colombo",
		"lines": []map[string]any{
			{"product_id": "prod-bracket", "quantity": 2},
		},
		"customer": map[string]any{"name": "Walk In"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed checkout failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	viewerToken := loginAs(t, handler, "viewer", "sales123")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/sales?format=csv", viewerToken, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "section,key,sales,revenue") {
		t.Fatalf("unexpected CSV header: %q", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "shop,shop-colombo,") {
		t.Fatalf("expected per-shop row in CSV, got: %q", rec.Body.String())
	}
}

func TestCreditSaleSettlesThroughPayments(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, handler, "sales", "sales123")
	csrf := fetchCSRFToken(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, csrf, map[string]any{
		"shop_id": "shop-colombo",
		"lines": []map[string]any{
			{"product_id": "prod-bracket", "quantity": 1},
		},
		"customer":       map[string]any{"name": "Credit Customer", "phone": "0719999999"},
		"payment_method": "credit",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("credit checkout failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if resp.CreditSale == nil {
		t.Fatalf("expected a credit sale to be opened")
	}
	if resp.CreditSale.Settled {
		t.Fatalf("fresh credit sale must not be settled")
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/credit-sales/"+resp.CreditSale.ID+"/payments", token, csrf, map[string]any{
		"amount": resp.CreditSale.BalanceDue,
		"method": "cash",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("record payment failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var settled domain.CreditSale
	if err := json.NewDecoder(rec.Body).Decode(&settled); err != nil {
		t.Fatalf("decode credit sale: %v", err)
	}
	if !settled.Settled {
		t.Fatalf("expected credit sale to be settled, balance=%s", settled.BalanceDue)
	}
	if !settled.BalanceDue.IsZero() {
		t.Fatalf("expected zero balance, got %s", settled.BalanceDue)
	}
}
