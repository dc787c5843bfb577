package keyword

import (
	"context"
	"fmt"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
)

// Generator sends one prompt to a text-generation model and returns its raw text answer
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// NewGenerator builds the generator selected by cfg.Provider
func NewGenerator(ctx context.Context, cfg config.ExtractorConfig, googleAPIKey string) (Generator, error) {
	apiKey := cfg.APIKey(googleAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key is not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case "gemini":
		return NewGeminiGenerator(ctx, apiKey, cfg.Model, cfg.Temperature)
	case "openai":
		return NewOpenAIGenerator(apiKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported extractor provider %q", cfg.Provider)
	}
}
