package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/config"
)

// NewClient builds a chat client for the configured provider. The model
// argument overrides the configured default when non-empty, so one provider
// configuration can serve every model an experiment lists.
func NewClient(ctx context.Context, cfg config.LLMConfig, model string, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = cfg.Model
	}
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, model, cfg.BaseURL), nil

	case "claude":
		return NewClaudeClient(cfg.APIKey, model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, model)

	case "ollama":
		// Ollama speaks the OpenAI-compatible API; routing through the
		// OpenAI client keeps usage tracking working.
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama" // ignored by Ollama, required by the client config
		}
		logger.Info("initializing ollama via openai-compatible api",
			zap.String("base_url", baseURL), zap.String("model", model))
		return NewOpenAIClient(apiKey, model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
