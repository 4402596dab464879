package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lotoos0/memex-sim/internal/usecase"
	"github.com/lotoos0/memex-sim/pkg/config"
	"github.com/lotoos0/memex-sim/pkg/logger"
)

func newTestHandler(t *testing.T) (*echo.Echo, *usecase.Simulation) {
	t.Helper()
	sim := usecase.New(config.Default(), logger.Nop(), nil, nil, nil, nil, nil)
	h := NewTradingHandler(logger.Nop(), sim)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, sim
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestHealthz(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	e, _ := newTestHandler(t)

	// missing side
	rec := doJSON(e, http.MethodPost, "/api/orders", `{"qty": 10}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("missing side should be 400, got %d", env.Status)
	}

	// bad side value
	rec = doJSON(e, http.MethodPost, "/api/orders", `{"side": "long", "qty": 10}`)
	env = decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("bad side should be 400, got %d", env.Status)
	}

	// non-positive qty
	rec = doJSON(e, http.MethodPost, "/api/orders", `{"side": "buy", "qty": 0}`)
	env = decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("zero qty should be 400, got %d", env.Status)
	}
}

func TestPlaceOrderAccepted(t *testing.T) {
	e, sim := newTestHandler(t)
	sim.Step(0.1, time.Now())

	rec := doJSON(e, http.MethodPost, "/api/orders", `{"side": "buy", "qty": 10}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusCreated {
		t.Fatalf("expected created, got %d (%s)", env.Status, rec.Body.String())
	}
	var order struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if order.ID == "" || order.Status != "new" {
		t.Fatalf("unexpected order: %+v", order)
	}
	if order.Type != "market" {
		t.Fatalf("type should default to market, got %s", order.Type)
	}
}

func TestPlaceOrderRiskRejected(t *testing.T) {
	e, sim := newTestHandler(t)
	sim.Step(0.1, time.Now())

	rec := doJSON(e, http.MethodPost, "/api/orders", `{"side": "buy", "qty": 1000000}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("oversized order should be 400, got %d", env.Status)
	}
}

func TestCancelOrderNotFound(t *testing.T) {
	e, _ := newTestHandler(t)
	rec := doJSON(e, http.MethodDelete, "/api/orders/O999", "")
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusNotFound {
		t.Fatalf("unknown order should be 404, got %d", env.Status)
	}
}

func TestStateEndpoint(t *testing.T) {
	e, sim := newTestHandler(t)
	sim.Step(0.1, time.Now())

	rec := doJSON(e, http.MethodGet, "/api/state", "")
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("state = %d", env.Status)
	}
	var st struct {
		Symbol    string  `json:"symbol"`
		LastPrice float64 `json:"lastPrice"`
	}
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Symbol == "" || st.LastPrice <= 0 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestInjectEventEndpoint(t *testing.T) {
	e, _ := newTestHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/events", `{"type": "nope"}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusBadRequest {
		t.Fatalf("unknown event type should be 400, got %d", env.Status)
	}

	rec = doJSON(e, http.MethodPost, "/api/events", `{"type": "ct_hype"}`)
	env = decodeEnvelope(t, rec)
	if env.Status != http.StatusCreated {
		t.Fatalf("expected created, got %d (%s)", env.Status, rec.Body.String())
	}
}

func TestControlsTimeframe(t *testing.T) {
	e, sim := newTestHandler(t)
	now := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 100; i++ {
		sim.Step(0.1, now)
		now = now.Add(100 * time.Millisecond)
	}

	rec := doJSON(e, http.MethodPut, "/api/controls", `{"tfSec": 5, "speed": 2}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("controls = %d (%s)", env.Status, rec.Body.String())
	}
	if sim.State().TimeframeSec != 5 {
		t.Fatalf("timeframe not applied: %d", sim.State().TimeframeSec)
	}
	if sim.State().Speed != 2 {
		t.Fatalf("speed not applied: %v", sim.State().Speed)
	}
}

func TestResetEndpoint(t *testing.T) {
	e, sim := newTestHandler(t)
	now := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 30; i++ {
		sim.Step(0.1, now)
		now = now.Add(100 * time.Millisecond)
	}

	rec := doJSON(e, http.MethodPost, "/api/reset", `{"seed": "fresh"}`)
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("reset = %d (%s)", env.Status, rec.Body.String())
	}
	var st struct {
		Candles []json.RawMessage `json:"candles"`
	}
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(st.Candles) != 0 {
		t.Fatalf("reset should clear candles, got %d", len(st.Candles))
	}
}

func TestCandlesEndpoint(t *testing.T) {
	e, sim := newTestHandler(t)
	now := time.UnixMilli(1_700_000_000_000)
	for i := 0; i < 50; i++ {
		sim.Step(0.1, now)
		now = now.Add(100 * time.Millisecond)
	}

	rec := doJSON(e, http.MethodGet, "/api/candles?limit=2", "")
	env := decodeEnvelope(t, rec)
	if env.Status != http.StatusOK {
		t.Fatalf("candles = %d", env.Status)
	}
	var list struct {
		Rows  []json.RawMessage `json:"rows"`
		Total int64             `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Rows) != 2 || list.Total != 2 {
		t.Fatalf("limit not applied: %d rows, total %d", len(list.Rows), list.Total)
	}
}
