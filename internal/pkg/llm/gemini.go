package llm

import (
	"Sodium/internal/api/config"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/googleai"
)

// GeminiPrefix 路由到 Google AI 的模型前缀
const GeminiPrefix = "gemini"

// NewGeminiClient Google AI 客户端
func NewGeminiClient(ctx context.Context, cfg config.ProviderConfig) (*googleai.GoogleAI, error) {
	opts := []googleai.Option{
		googleai.WithAPIKey(cfg.ApiKey),
	}
	if cfg.Model != "" {
		opts = append(opts, googleai.WithDefaultModel(cfg.Model))
	}
	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiProvider Gemini 适配器
func NewGeminiProvider(client *googleai.GoogleAI, temperature float64) Provider {
	return newChatProvider("gemini", client, temperature)
}
