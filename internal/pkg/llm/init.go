package llm

import (
	"Sodium/internal/api/config"
	"context"
	log "log/slog"
)

// InitLLM 初始化供应商, 返回对话分发器与审核网关
func InitLLM(ctx context.Context, cfg config.LLMConfig) (*Dispatcher, Moderator, error) {
	openaiClient, err := NewOpenAIClient(cfg.OpenAI)
	if err != nil {
		log.Error("failed to init llm", "provider", "openai", "err", err)
		return nil, nil, err
	}
	dispatcher := NewDispatcher(NewOpenAIProvider(openaiClient, cfg.Temperature))

	if cfg.Gemini.ApiKey != "" {
		geminiClient, err := NewGeminiClient(ctx, cfg.Gemini)
		if err != nil {
			log.Error("failed to init llm", "provider", "gemini", "err", err)
			return nil, nil, err
		}
		dispatcher.Route(GeminiPrefix, NewGeminiProvider(geminiClient, cfg.Temperature))
	} else {
		log.Warn("gemini api key not set, gemini models fall back to the openai endpoint")
	}

	moderator, err := NewModerator(openaiClient, cfg.TextModel, cfg.VisionModel)
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, moderator, nil
}
