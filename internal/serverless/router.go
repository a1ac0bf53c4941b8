package serverless

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/gateway"
)

// WebSocket routes answered without running a turn
const (
	RouteConnect    = "$connect"
	RouteDisconnect = "$disconnect"
)

// TurnHandler is the gateway surface the router dispatches to
type TurnHandler interface {
	HandleSync(ctx context.Context, body []byte) gateway.Result
	HandleStream(ctx context.Context, connectionID string, body []byte, pusher repositories.Pusher) int
}

// PusherFactory creates a pusher for a stage callback endpoint
type PusherFactory func(endpoint string) repositories.Pusher

// Router is the Lambda entry point. One function serves REST proxy events, direct
// (non-proxy) invocations whose payload is the request body itself, and API Gateway
// WebSocket events.
type Router struct {
	turns     TurnHandler
	newPusher PusherFactory
	endpoint  string
	logger    *zap.Logger

	mu      sync.Mutex
	pushers map[string]repositories.Pusher
}

// NewRouter creates a router. When endpoint is empty the management endpoint is
// derived from each WebSocket event's domain name and stage.
func NewRouter(turns TurnHandler, newPusher PusherFactory, endpoint string, logger *zap.Logger) *Router {
	return &Router{
		turns:     turns,
		newPusher: newPusher,
		endpoint:  endpoint,
		logger:    logger,
		pushers:   make(map[string]repositories.Pusher),
	}
}

// eventProbe holds just enough of an event to tell the shapes apart
type eventProbe struct {
	Body           json.RawMessage `json:"body"`
	RequestContext struct {
		ConnectionID string `json:"connectionId"`
	} `json:"requestContext"`
}

// Handle implements the Lambda handler signature
func (r *Router) Handle(ctx context.Context, event json.RawMessage) (events.APIGatewayProxyResponse, error) {
	var probe eventProbe
	if err := json.Unmarshal(event, &probe); err != nil {
		return r.respond(gateway.Result{
			StatusCode: http.StatusBadRequest,
			Body:       domain.ErrorResponse{Error: "event is not a JSON object"},
		}), nil
	}

	if probe.RequestContext.ConnectionID != "" {
		var req events.APIGatewayWebsocketProxyRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
		}
		return r.handleWebSocket(ctx, req), nil
	}

	if probe.Body != nil {
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return r.respond(gateway.Result{
				StatusCode: http.StatusBadRequest,
				Body:       domain.ErrorResponse{Error: "body is not valid JSON"},
			}), nil
		}
		body, err := proxyBody(req.Body, req.IsBase64Encoded)
		if err != nil {
			return r.respond(gateway.Result{
				StatusCode: http.StatusBadRequest,
				Body:       domain.ErrorResponse{Error: "body is not valid JSON"},
			}), nil
		}
		return r.respond(r.turns.HandleSync(ctx, body)), nil
	}

	return r.respond(r.turns.HandleSync(ctx, event)), nil
}

func (r *Router) handleWebSocket(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) events.APIGatewayProxyResponse {
	rc := req.RequestContext
	logger := r.logger.With(zap.String("connectionID", rc.ConnectionID), zap.String("routeKey", rc.RouteKey))

	switch rc.RouteKey {
	case RouteConnect, RouteDisconnect:
		logger.Info("WebSocket lifecycle event")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusOK}
	}

	body, err := proxyBody(req.Body, req.IsBase64Encoded)
	if err != nil {
		logger.Warn("Undecodable WebSocket body", zap.Error(err))
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}
	}

	pusher := r.pusherFor(r.callbackEndpoint(rc.DomainName, rc.Stage))
	status := r.turns.HandleStream(ctx, rc.ConnectionID, body, pusher)
	return events.APIGatewayProxyResponse{StatusCode: status}
}

func (r *Router) respond(result gateway.Result) events.APIGatewayProxyResponse {
	body, err := json.Marshal(result.Body)
	if err != nil {
		r.logger.Error("Failed to encode response", zap.Error(err))
		result.StatusCode = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: result.StatusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}
}

func (r *Router) callbackEndpoint(domainName, stage string) string {
	if r.endpoint != "" {
		return r.endpoint
	}
	return fmt.Sprintf("https://%s/%s", domainName, stage)
}

// pusherFor reuses one pusher per endpoint across warm invocations
func (r *Router) pusherFor(endpoint string) repositories.Pusher {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pushers[endpoint]; ok {
		return p
	}
	p := r.newPusher(endpoint)
	r.pushers[endpoint] = p
	r.logger.Debug("Created pusher", zap.String("endpoint", endpoint))
	return p
}

// proxyBody returns the request body, treating an absent body as an empty object
func proxyBody(body string, isBase64 bool) ([]byte, error) {
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 body: %w", err)
		}
		body = string(decoded)
	}
	if strings.TrimSpace(body) == "" {
		return []byte("{}"), nil
	}
	return []byte(body), nil
}
