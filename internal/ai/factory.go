package ai

import (
	"github.com/ignatzorin/username-extractor/internal/config"
)

// NewFromConfig создаёт Extractor для провайдера из конфигурации.
func NewFromConfig(cfg *config.Config) *Extractor {
	var factory ProviderFactory
	switch cfg.AIProvider {
	case config.ProviderOpenAI:
		factory = OpenAIFactory(cfg.AIBaseURL, cfg.AIModel)
	default:
		factory = GeminiFactory(cfg.AIModel, cfg.AIBaseURL)
	}
	return NewExtractor(cfg.AIAPIKey, factory)
}
