package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

const (
	defaultGeminiModel     = "gemini-2.5-flash"
	defaultTemperature     = 0.7
	defaultTopP            = 0.9
	defaultTopK            = 40
	defaultMaxOutputTokens = 1024
)

// GeminiConfig holds configuration for the Gemini adapter
// Required fields:
// - APIKey: Google AI API key
// Optional fields with defaults:
// - Model (gemini-2.5-flash), Temperature (0.7), TopP (0.9), TopK (40), MaxOutputTokens (1024)
// - BaseURL: overrides the API endpoint
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int
	BaseURL         string
}

// geminiSafetySettings keep replies suitable for children
var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockLowAndAbove},
}

// GeminiLLM implements the LanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client          *genai.Client
	model           string
	temperature     float32
	topP            float32
	topK            float32
	maxOutputTokens int
	logger          *zap.Logger
}

var _ repositories.LanguageModel = (*GeminiLLM)(nil)

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.TopP < 0 || config.TopP > 1 {
		return fmt.Errorf("topP must be between 0 and 1, got %f", config.TopP)
	}
	if config.TopK < 0 {
		return fmt.Errorf("topK must be positive, got %f", config.TopK)
	}
	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}
	return nil
}

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &GeminiLLM{
		client:          client,
		model:           config.Model,
		temperature:     config.Temperature,
		topP:            config.TopP,
		topK:            config.TopK,
		maxOutputTokens: config.MaxOutputTokens,
		logger:          logger,
	}
	if g.model == "" {
		g.model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", g.model))
	}
	if g.temperature == 0 {
		g.temperature = defaultTemperature
		logger.Info("Using default temperature", zap.Float32("temperature", g.temperature))
	}
	if g.topP == 0 {
		g.topP = defaultTopP
		logger.Info("Using default topP", zap.Float32("topP", g.topP))
	}
	if g.topK == 0 {
		g.topK = defaultTopK
		logger.Info("Using default topK", zap.Float32("topK", g.topK))
	}
	if g.maxOutputTokens == 0 {
		g.maxOutputTokens = defaultMaxOutputTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", g.maxOutputTokens))
	}
	return g, nil
}

// Generate implements repositories.LanguageModel
func (g *GeminiLLM) Generate(ctx context.Context, systemInstructions string, turns entities.History) (string, error) {
	config := &genai.GenerateContentConfig{
		SafetySettings:  geminiSafetySettings,
		Temperature:     genai.Ptr(g.temperature),
		TopP:            genai.Ptr(g.topP),
		TopK:            genai.Ptr(g.topK),
		MaxOutputTokens: int32(g.maxOutputTokens),
	}
	if systemInstructions != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstructions, genai.RoleUser)
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, toGeminiContents(turns), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response (finish reason %q)", response.Candidates[0].FinishReason)
	}

	g.logger.Debug("Gemini replied",
		zap.String("model", g.model),
		zap.Int("turns", len(turns)),
		zap.Int("responseLength", len(text)))
	return text, nil
}

// toGeminiContents maps conversation roles onto Gemini's user/model roles
func toGeminiContents(turns entities.History) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == entities.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text(), role))
	}
	return contents
}
