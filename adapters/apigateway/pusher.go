package apigateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/repositories"
)

type connectionPoster interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// Pusher posts frames to API Gateway WebSocket connections through the
// management API of one stage.
type Pusher struct {
	client   connectionPoster
	endpoint string
	logger   *zap.Logger
}

var _ repositories.Pusher = (*Pusher)(nil)

// NewPusher creates a pusher for the stage callback endpoint,
// e.g. https://{api-id}.execute-api.{region}.amazonaws.com/{stage}.
func NewPusher(cfg aws.Config, endpoint string, logger *zap.Logger) *Pusher {
	client := apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return newPusher(client, endpoint, logger)
}

func newPusher(client connectionPoster, endpoint string, logger *zap.Logger) *Pusher {
	return &Pusher{client: client, endpoint: endpoint, logger: logger}
}

// PostToConnection implements repositories.Pusher. A connection the client has
// already closed is reported as domain.ErrConnectionGone.
func (p *Pusher) PostToConnection(ctx context.Context, connectionID string, payload []byte) error {
	_, err := p.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err == nil {
		return nil
	}

	var gone *types.GoneException
	if errors.As(err, &gone) {
		p.logger.Info("Connection gone", zap.String("connectionID", connectionID), zap.String("endpoint", p.endpoint))
		return fmt.Errorf("%w: %s", domain.ErrConnectionGone, connectionID)
	}
	return fmt.Errorf("failed to post to connection %s: %w", connectionID, err)
}
