package repositories

import (
	"context"

	"github.com/satriahrh/robozinho/domain/entities"
)

// LanguageModel abstracts any chat/LLM provider
type LanguageModel interface {
	// Generate returns the assistant reply for the ordered turns, steered by the
	// system instructions. The last turn is the user prompt being answered.
	Generate(ctx context.Context, systemInstructions string, turns entities.History) (string, error)
}
