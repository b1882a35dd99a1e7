package llm

import (
	"Sodium/internal/api/config"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAIClient 兼容 OpenAI 协议的客户端
func NewOpenAIClient(cfg config.ProviderConfig) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.ApiKey),
	}
	if cfg.URL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.URL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init openai client: %w", err)
	}
	return client, nil
}

// NewOpenAIProvider OpenAI 适配器
func NewOpenAIProvider(client *openai.LLM, temperature float64) Provider {
	return newChatProvider("openai", client, temperature)
}
