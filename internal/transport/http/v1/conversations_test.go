package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/waegarcia/conversational-assistant/internal/config"
	"github.com/waegarcia/conversational-assistant/internal/domain"
	"github.com/waegarcia/conversational-assistant/internal/metrics"
	"github.com/waegarcia/conversational-assistant/internal/policy"
	"github.com/waegarcia/conversational-assistant/internal/repository"
	"github.com/waegarcia/conversational-assistant/internal/service"
	"github.com/waegarcia/conversational-assistant/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, repository.Store) {
	cfg := &config.Config{
		StoreTimeout: time.Second,
		Weather:      config.WeatherConfig{DefaultCity: "Buenos Aires"},
	}
	db := helpers.NewTestSQLiteStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, policy.Limits{MaxUserIDLength: 100, MaxMessageLength: 2000})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(db, helpers.FailingGateway(), metrics.NewPrometheus(), policyEngine, cfg, nil)
	return NewHandler(svc, nil), db
}

func postTurn(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/conversations", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ProcessMessage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestProcessMessageSuccess(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postTurn(t, h, `{"user_id":"u1","message":"Hola"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res domain.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.SessionID == "" || res.Intent != domain.IntentGreeting || !res.ConversationActive {
		t.Fatalf("unexpected response: %+v", res)
	}
	if strings.Contains(rec.Body.String(), "external_service_used") {
		t.Fatalf("greeting should not carry a provider tag: %s", rec.Body.String())
	}
}

func TestProcessMessageValidation(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, body := range []string{
		`{"user_id":"","message":"hola"}`,
		`{"user_id":"u1","message":"  "}`,
		`{"user_id":"u1"}`,
		`not json`,
	} {
		rec := postTurn(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestProcessMessageWeatherDegraded(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := postTurn(t, h, `{"user_id":"u1","message":"clima en Rosario"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res domain.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Intent != domain.IntentWeatherQuery || res.ExternalServiceUsed != "" {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestGetHistoryNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues("missing")

	if err := h.GetHistory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetHistorySuccess(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	var first domain.TurnResult
	if err := json.Unmarshal(postTurn(t, h, `{"user_id":"u1","message":"hola"}`).Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	postTurn(t, h, `{"session_id":"`+first.SessionID+`","user_id":"u1","message":"ayuda"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/"+first.SessionID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(first.SessionID)

	if err := h.GetHistory(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var hist domain.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &hist); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if hist.Status != domain.ConversationStatusActive || len(hist.Messages) != 4 {
		t.Fatalf("unexpected history: %+v", hist)
	}
	if hist.Messages[2].Content != "ayuda" || hist.Messages[3].Intent != domain.IntentHelp {
		t.Fatalf("unexpected message order: %+v", hist.Messages)
	}
}

func TestEndConversation(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t)

	var first domain.TurnResult
	if err := json.Unmarshal(postTurn(t, h, `{"user_id":"u1","message":"hola"}`).Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	end := func() int {
		req := httptest.NewRequest(http.MethodDelete, "/api/conversations/"+first.SessionID, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("session_id")
		c.SetParamValues(first.SessionID)
		if err := h.EndConversation(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		return rec.Code
	}

	if code := end(); code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", code)
	}
	conv, err := db.GetConversation(context.Background(), first.SessionID)
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if conv == nil || conv.Status != domain.ConversationStatusCompleted {
		t.Fatalf("expected completed conversation, got %+v", conv)
	}

	if code := end(); code != http.StatusNotFound {
		t.Fatalf("expected 404 on second end, got %d", code)
	}
}

func TestMetricsSummary(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)
	postTurn(t, h, `{"user_id":"u1","message":"clima"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/summary", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.MetricsSummary(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var s domain.MetricsSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if s.ConversationsCreated != 1 || s.MessagesProcessed != 1 || s.ExternalAPIFailures != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
