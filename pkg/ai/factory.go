package ai

import (
	"fmt"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType

	GeminiAPIKey string
}

// NewSummarizerService creates a SummarizerService based on the config.
func NewSummarizerService(cfg Config) (SummarizerService, error) {
	switch cfg.Provider {
	case ProviderGemini, ProviderAuto, "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	default:
		return nil, fmt.Errorf("unknown AI provider: %s", cfg.Provider)
	}
}
