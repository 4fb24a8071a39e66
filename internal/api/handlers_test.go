package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"equity-share-calculator/internal/events"
	"equity-share-calculator/internal/preview"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T, mutate func(*ServerConfig)) *Server {
	t.Helper()

	config := ServerConfig{
		Port:           8080,
		Host:           "127.0.0.1",
		ProductionMode: true,
		RateLimit:      1000,
		RateWindow:     time.Minute,
	}
	if mutate != nil {
		mutate(&config)
	}

	bus := events.NewEventBus()
	previews := preview.NewManager(20*time.Millisecond, time.Minute, nil, bus, zerolog.Nop())
	t.Cleanup(previews.Stop)

	return NewServer(config, bus, previews, nil)
}

func postJSON(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) CalculateResponse {
	t.Helper()
	var resp CalculateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return resp
}

// ============================================================================
// Calculate
// ============================================================================

func TestCalculateEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s, "/api/calculate", `{
		"project_cost": "500000",
		"sale_price": 650000,
		"developer_bonus_pct": "10",
		"participants": [
			{"name": "Dana", "role": "Developer"},
			{"name": "Ivan", "role": "Investor", "payment": "500000"}
		]
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)

	if resp.Pools.Base != 90 || resp.Pools.Role != 10 {
		t.Errorf("unexpected pools: %+v", resp.Pools)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Results))
	}
	// Input order is preserved.
	if resp.Results[0].Name != "Dana" || resp.Results[1].Name != "Ivan" {
		t.Errorf("row order not preserved: %+v", resp.Results)
	}
	if resp.Results[0].TotalEquityPct != 10 {
		t.Errorf("expected developer equity 10, got %v", resp.Results[0].TotalEquityPct)
	}
	if resp.Results[1].TotalEquityPct != 90 {
		t.Errorf("expected investor equity 90, got %v", resp.Results[1].TotalEquityPct)
	}
	if resp.Results[1].FinalValue != 585000 {
		t.Errorf("expected investor final value 585000, got %v", resp.Results[1].FinalValue)
	}
	if resp.Totals.TotalEquityPctSum != 100 {
		t.Errorf("expected equity sum 100, got %v", resp.Totals.TotalEquityPctSum)
	}
	if len(resp.Banners.Errors) != 0 {
		t.Errorf("expected no errors, got %v", resp.Banners.Errors)
	}
}

func TestCalculateEndpoint_LenientNumerics(t *testing.T) {
	s := newTestServer(t, nil)

	// Garbage numerics coerce to 0 instead of faulting the request.
	w := postJSON(t, s, "/api/calculate", `{
		"project_cost": "not a number",
		"sale_price": null,
		"developer_bonus_pct": "12.5",
		"participants": [
			{"name": "Dana", "role": "Developer", "payment": "oops"},
			{"name": "Ivan", "role": "Investor", "payment": 1000}
		]
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	if resp.Totals.ProjectCost != 0 || resp.Totals.SalePrice != 0 {
		t.Errorf("expected zeroed economics, got %+v", resp.Totals)
	}
	if resp.Pools.Role != 12.5 {
		t.Errorf("expected role pool 12.5, got %v", resp.Pools.Role)
	}
}

func TestCalculateEndpoint_SkipsIncompleteRows(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s, "/api/calculate", `{
		"sale_price": 100000,
		"participants": [
			{"name": "", "role": "Investor", "payment": 500},
			{"name": "Ghost", "role": "", "payment": 500},
			{"name": "Ivan", "role": "Investor", "payment": 1000}
		]
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if len(resp.Results) != 1 || resp.Results[0].Name != "Ivan" {
		t.Errorf("expected only the complete row, got %+v", resp.Results)
	}
}

func TestCalculateEndpoint_StructuralFault(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s, "/api/calculate", `{"sale_price": 100000, "participants": []}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	var fault map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &fault); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if fault["error"] != "calculation_failed" {
		t.Errorf("unexpected fault shape: %v", fault)
	}
}

func TestCalculateEndpoint_FailSoftBanners(t *testing.T) {
	s := newTestServer(t, nil)

	// Over-budget role pools are a business-rule violation: the result
	// still computes and the violation travels as a banner.
	w := postJSON(t, s, "/api/calculate", `{
		"sale_price": 100000,
		"investor_bonus_pct": 120,
		"participants": [{"name": "Ivan", "role": "Investor", "payment": 1000}]
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if len(resp.Banners.Errors) == 0 {
		t.Fatal("expected error banners")
	}
	if resp.Pools.Base != -20 {
		t.Errorf("expected the overdrawn base pool to be reported, got %v", resp.Pools.Base)
	}
}

func TestCalculateEndpoint_ParticipantCap(t *testing.T) {
	s := newTestServer(t, func(c *ServerConfig) { c.MaxParticipants = 2 })

	w := postJSON(t, s, "/api/calculate", `{
		"sale_price": 100000,
		"participants": [
			{"name": "A", "role": "Investor", "payment": 1},
			{"name": "B", "role": "Investor", "payment": 1},
			{"name": "C", "role": "Investor", "payment": 1}
		]
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}

// ============================================================================
// Limits / health
// ============================================================================

func TestLimitsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp["max_participants"] != float64(20) {
		t.Errorf("expected max_participants 20, got %v", resp["max_participants"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health body: %s", w.Body.String())
	}
}

// ============================================================================
// Export
// ============================================================================

const exportPayload = `{
	"project_cost": 100000,
	"sale_price": 150000,
	"developer_bonus_pct": 10,
	"participants": [
		{"name": "Dana", "role": "Developer"},
		{"name": "Ivan", "role": "Investor", "payment": 100000}
	]
}`

func TestExportCSVEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s, "/api/export/csv", exportPayload)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "investment-results.csv") {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("expected a UTF-8 BOM")
	}
}

func TestExportEndpoints_RejectInvalidResults(t *testing.T) {
	s := newTestServer(t, nil)

	invalid := `{
		"sale_price": 100000,
		"investor_bonus_pct": 120,
		"participants": [{"name": "Ivan", "role": "Investor", "payment": 1000}]
	}`

	for _, path := range []string{"/api/export/csv", "/api/export/print"} {
		w := postJSON(t, s, path, invalid)
		if w.Code != http.StatusConflict {
			t.Errorf("%s: expected status 409, got %d", path, w.Code)
			continue
		}
		var resp map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: failed to parse response: %v", path, err)
		}
		if resp["error"] != "results_invalid" {
			t.Errorf("%s: unexpected error shape: %v", path, resp)
		}
	}
}

func TestExportPrintEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	w := postJSON(t, s, "/api/export/print", exportPayload)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Signatures") {
		t.Error("expected a signature block in the printable document")
	}
}

// ============================================================================
// Rate limiting
// ============================================================================

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(t, func(c *ServerConfig) {
		c.RateLimit = 2
		c.RateWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
		w := httptest.NewRecorder()
		s.Router().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/limits", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the limit, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)

	if !rl.Allow("k") || !rl.Allow("k") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("k") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("other") {
		t.Fatal("separate keys have separate budgets")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("k") {
		t.Fatal("window expiry should reset the budget")
	}
}
