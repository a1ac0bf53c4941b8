package app

import (
	"strings"

	"go.uber.org/zap"
)

// NewLogger builds the production logger, or the development one at debug level
func NewLogger(level string) (*zap.Logger, error) {
	if strings.EqualFold(level, "debug") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
