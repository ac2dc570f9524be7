package llm

import (
	"fmt"

	"go.uber.org/zap"
)

// NewClientForProvider creates an LLM client for the configured provider.
// Returns LLMClient to enable dependency injection of mocks.
func NewClientForProvider(cfg *Config, logger *zap.Logger) (LLMClient, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewClient(cfg, logger)
	case "anthropic":
		return NewAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
