package main

import (
	"context"

	"go.uber.org/zap"

	"dataflowguard/internal/ai"
	"dataflowguard/internal/config"
)

func zapError(err error) zap.Field {
	return zap.Error(err)
}

// buildProvider constructs the AI provider per cfg.AI: a genai adapter
// when external AI is enabled and configured, the deterministic stub
// otherwise. Shared by health and compile so both commands agree on
// what "the configured provider" means.
func buildProvider(ctx context.Context, cfg config.Config) ai.Provider {
	var provider ai.Provider = ai.NewDeterministic(cfg.AI.Model)
	if cfg.AI.Enabled && cfg.AI.APIKey != "" {
		adapter, err := ai.NewGenAIAdapter(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if err != nil {
			logger.Warn("genai adapter unavailable, falling back to deterministic stub", zapError(err))
		} else {
			provider = adapter
		}
	}
	return provider
}
