package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

// MockLLM is a placeholder language model for local runs without credentials
type MockLLM struct{}

var _ repositories.LanguageModel = (*MockLLM)(nil)

// NewMockLLM creates a new mock language model
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Generate implements repositories.LanguageModel
func (m *MockLLM) Generate(ctx context.Context, systemInstructions string, turns entities.History) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(turns) == 0 {
		return "Olá! Eu sou o Robozinho. Sobre o que vamos conversar hoje?", nil
	}
	last := turns[len(turns)-1].Text()
	return fmt.Sprintf("Que legal! Você disse '%s'. Conte mais para mim!", last), nil
}
