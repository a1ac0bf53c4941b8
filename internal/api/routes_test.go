package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/adapters/memory"
	"github.com/satriahrh/robozinho/internal/auth"
	"github.com/satriahrh/robozinho/internal/gateway"
)

type fakeSync struct {
	body   string
	result gateway.Result
}

func (f *fakeSync) HandleSync(_ context.Context, body []byte) gateway.Result {
	f.body = string(body)
	return f.result
}

type testServer struct {
	e      *echo.Echo
	sync   *fakeSync
	tokens *auth.TokenManager
	robots *memory.RobotRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}
	robots, _ := memory.NewRobotRepository()
	sync := &fakeSync{result: gateway.Result{StatusCode: http.StatusOK, Body: map[string]string{"response": "oi"}}}

	e := echo.New()
	InitRoutes(e, Dependencies{
		Gateway:  sync,
		Robots:   robots,
		Tokens:   tokens,
		Gatherer: prometheus.NewRegistry(),
		Logger:   zaptest.NewLogger(t),
	})
	return &testServer{e: e, sync: sync, tokens: tokens, robots: robots}
}

func (s *testServer) do(t *testing.T, method, path, body, owner string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if owner != "" {
		token, err := s.tokens.GenerateOwnerToken(owner)
		if err != nil {
			t.Fatalf("GenerateOwnerToken failed: %v", err)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestInvoke(t *testing.T) {
	s := newTestServer(t)
	body := `{"action":"invokeBedrock","prompt":"oi","history":[]}`

	rec := s.do(t, http.MethodPost, "/api/v1/invoke", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if s.sync.body != body {
		t.Errorf("Handler received %q", s.sync.body)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Errorf("Expected CORS header, got %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Expected JSON content type, got %q", got)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp["response"] != "oi" {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestInvokePassesStatus(t *testing.T) {
	s := newTestServer(t)
	s.sync.result = gateway.Result{StatusCode: http.StatusBadRequest, Body: map[string]string{"error": "prompt is required"}}

	rec := s.do(t, http.MethodPost, "/api/v1/invoke", `{"action":"invokeBedrock"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestRobotsRequireToken(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodGet, "/api/v1/robots", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/robots", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer garbage")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with invalid token, got %d", rec.Code)
	}
}

func TestRobotsLifecycle(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing code", `{"name":"Robo"}`, http.StatusBadRequest},
		{"missing name", `{"code":"R1"}`, http.StatusBadRequest},
		{"created", `{"code":"R1","name":"Robo","params":{"idade":7}}`, http.StatusCreated},
		{"duplicate", `{"code":"R1","name":"Outro"}`, http.StatusConflict},
		{"text params", `{"code":"R2","name":"Robo 2","params":"Fale como um pirata."}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/robots", tt.body, "owner-1")
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}

	ctx := context.Background()
	if got, _ := s.robots.GetSystemInstructions(ctx, "R1"); got != `{"idade":7}` {
		t.Errorf("Expected params stored as JSON text, got %q", got)
	}
	if got, _ := s.robots.GetSystemInstructions(ctx, "R2"); got != "Fale como um pirata." {
		t.Errorf("Expected text params stored verbatim, got %q", got)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/robots", "", "owner-1")
	var robots []struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &robots); err != nil || len(robots) != 2 {
		t.Fatalf("Expected two robots, got %s", rec.Body.String())
	}

	if rec := s.do(t, http.MethodGet, "/api/v1/robots", "", "owner-2"); strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected empty list for another owner, got %s", rec.Body.String())
	}

	id := robots[0].ID
	if rec := s.do(t, http.MethodDelete, "/api/v1/robots/"+id, "", "owner-2"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting a foreign robot, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/v1/robots/"+id, "", "owner-1"); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/v1/robots/"+id, "", "owner-1"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
}
