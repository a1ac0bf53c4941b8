package serverless

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/gateway"
)

type recordingTurns struct {
	syncBodies   []string
	streamCalls  []string
	streamBodies []string
	pushers      []repositories.Pusher
}

func (r *recordingTurns) HandleSync(_ context.Context, body []byte) gateway.Result {
	r.syncBodies = append(r.syncBodies, string(body))
	return gateway.Result{StatusCode: http.StatusOK, Body: domain.InvokeResponse{Response: "olá"}}
}

func (r *recordingTurns) HandleStream(_ context.Context, connectionID string, body []byte, pusher repositories.Pusher) int {
	r.streamCalls = append(r.streamCalls, connectionID)
	r.streamBodies = append(r.streamBodies, string(body))
	r.pushers = append(r.pushers, pusher)
	return http.StatusOK
}

type namedPusher struct {
	endpoint string
}

func (p *namedPusher) PostToConnection(context.Context, string, []byte) error {
	return nil
}

func newTestRouter(t *testing.T, endpoint string) (*Router, *recordingTurns, *[]string) {
	turns := &recordingTurns{}
	var created []string
	factory := func(endpoint string) repositories.Pusher {
		created = append(created, endpoint)
		return &namedPusher{endpoint: endpoint}
	}
	return NewRouter(turns, factory, endpoint, zaptest.NewLogger(t)), turns, &created
}

func TestRouter_RESTProxy(t *testing.T) {
	router, turns, _ := newTestRouter(t, "")
	event := `{"httpMethod":"POST","path":"/invoke","body":"{\"action\":\"invokeBedrock\",\"prompt\":\"oi\"}","requestContext":{"stage":"prod"}}`

	resp, err := router.Handle(context.Background(), json.RawMessage(event))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "*" || resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("Missing headers: %v", resp.Headers)
	}
	if len(turns.syncBodies) != 1 || turns.syncBodies[0] != `{"action":"invokeBedrock","prompt":"oi"}` {
		t.Errorf("Unexpected sync bodies %v", turns.syncBodies)
	}

	var body domain.InvokeResponse
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil || body.Response != "olá" {
		t.Errorf("Unexpected body %q (%v)", resp.Body, err)
	}
}

func TestRouter_RESTProxyBodyVariants(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		wantBody string
	}{
		{
			name:     "null body",
			event:    `{"httpMethod":"POST","body":null}`,
			wantBody: "{}",
		},
		{
			name:     "empty body",
			event:    `{"httpMethod":"POST","body":""}`,
			wantBody: "{}",
		},
		{
			name:     "base64 body",
			event:    `{"httpMethod":"POST","isBase64Encoded":true,"body":"` + base64.StdEncoding.EncodeToString([]byte(`{"prompt":"oi"}`)) + `"}`,
			wantBody: `{"prompt":"oi"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, turns, _ := newTestRouter(t, "")
			if _, err := router.Handle(context.Background(), json.RawMessage(tt.event)); err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if len(turns.syncBodies) != 1 || turns.syncBodies[0] != tt.wantBody {
				t.Errorf("Expected body %q, got %v", tt.wantBody, turns.syncBodies)
			}
		})
	}
}

func TestRouter_NonProxyInvocation(t *testing.T) {
	router, turns, _ := newTestRouter(t, "")
	event := `{"action":"invokeBedrock","prompt":"oi","history":[]}`

	resp, err := router.Handle(context.Background(), json.RawMessage(event))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if len(turns.syncBodies) != 1 || turns.syncBodies[0] != event {
		t.Errorf("Expected the event itself as body, got %v", turns.syncBodies)
	}
}

func TestRouter_WebSocketLifecycle(t *testing.T) {
	router, turns, created := newTestRouter(t, "")

	for _, route := range []string{RouteConnect, RouteDisconnect} {
		event := `{"requestContext":{"routeKey":"` + route + `","connectionId":"abc=","domainName":"x.execute-api.us-east-1.amazonaws.com","stage":"prod"}}`
		resp, err := router.Handle(context.Background(), json.RawMessage(event))
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", route, resp.StatusCode)
		}
	}
	if len(turns.streamCalls) != 0 || len(*created) != 0 {
		t.Error("Lifecycle routes should not run turns or create pushers")
	}
}

func TestRouter_WebSocketMessage(t *testing.T) {
	router, turns, created := newTestRouter(t, "")
	event := `{"body":"{\"action\":\"invokeBedrock\",\"prompt\":\"oi\"}","requestContext":{"routeKey":"invokeBedrock","connectionId":"abc=","domainName":"x.execute-api.us-east-1.amazonaws.com","stage":"prod"}}`

	for i := 0; i < 2; i++ {
		resp, err := router.Handle(context.Background(), json.RawMessage(event))
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200, got %d", resp.StatusCode)
		}
	}

	if len(turns.streamCalls) != 2 || turns.streamCalls[0] != "abc=" {
		t.Fatalf("Unexpected stream calls %v", turns.streamCalls)
	}
	if turns.streamBodies[0] != `{"action":"invokeBedrock","prompt":"oi"}` {
		t.Errorf("Unexpected body %q", turns.streamBodies[0])
	}
	if len(*created) != 1 || (*created)[0] != "https://x.execute-api.us-east-1.amazonaws.com/prod" {
		t.Errorf("Expected one derived pusher, got %v", *created)
	}
	if turns.pushers[0] != turns.pushers[1] {
		t.Error("Pusher should be reused across invocations")
	}
}

func TestRouter_ConfiguredEndpoint(t *testing.T) {
	router, _, created := newTestRouter(t, "https://ws.example.com/live")
	event := `{"body":"{}","requestContext":{"routeKey":"$default","connectionId":"abc=","domainName":"ignored","stage":"prod"}}`

	if _, err := router.Handle(context.Background(), json.RawMessage(event)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(*created) != 1 || (*created)[0] != "https://ws.example.com/live" {
		t.Errorf("Expected configured endpoint, got %v", *created)
	}
}

func TestRouter_InvalidEvent(t *testing.T) {
	router, turns, _ := newTestRouter(t, "")

	resp, err := router.Handle(context.Background(), json.RawMessage(`"just a string"`))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
	if len(turns.syncBodies) != 0 {
		t.Error("Invalid event should not reach the gateway")
	}
}
