package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

const (
	defaultBedrockModelID   = "anthropic.claude-3-haiku-20240307-v1:0"
	defaultBedrockMaxTokens = 2048
	bedrockAnthropicVersion = "bedrock-2023-05-31"
)

// BedrockConfig holds configuration for the Claude-on-Bedrock adapter
type BedrockConfig struct {
	ModelID   string
	MaxTokens int
}

// BedrockInvoker is the subset of the Bedrock runtime client the adapter uses
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockLLM implements the LanguageModel interface with Anthropic Claude served by Amazon Bedrock
type BedrockLLM struct {
	client    BedrockInvoker
	modelID   string
	maxTokens int
	logger    *zap.Logger
}

var _ repositories.LanguageModel = (*BedrockLLM)(nil)

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         entities.History `json:"messages"`
}

type bedrockResponse struct {
	Content    []entities.ContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
}

// NewBedrockLLM creates a new Bedrock LLM instance
func NewBedrockLLM(client BedrockInvoker, config BedrockConfig, logger *zap.Logger) *BedrockLLM {
	if config.ModelID == "" {
		config.ModelID = defaultBedrockModelID
		logger.Info("Using default model", zap.String("modelID", config.ModelID))
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultBedrockMaxTokens
		logger.Info("Using default max tokens", zap.Int("maxTokens", config.MaxTokens))
	}
	return &BedrockLLM{
		client:    client,
		modelID:   config.ModelID,
		maxTokens: config.MaxTokens,
		logger:    logger,
	}
}

// Generate implements repositories.LanguageModel
func (b *BedrockLLM) Generate(ctx context.Context, systemInstructions string, turns entities.History) (string, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: bedrockAnthropicVersion,
		MaxTokens:        b.maxTokens,
		System:           systemInstructions,
		Messages:         turns,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode bedrock request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock invoke model: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode bedrock response: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == entities.ContentTypeText {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("bedrock returned no text (stop reason %q)", resp.StopReason)
	}

	b.logger.Debug("Bedrock replied",
		zap.String("modelID", b.modelID),
		zap.Int("turns", len(turns)),
		zap.String("stopReason", resp.StopReason))
	return sb.String(), nil
}
