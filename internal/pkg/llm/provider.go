package llm

import (
	"context"
	log "log/slog"

	"github.com/tmc/langchaingo/llms"
)

// chatProvider 基于 langchaingo llms.Model 的通用适配器
type chatProvider struct {
	name        string
	client      llms.Model
	temperature float64
}

func newChatProvider(name string, client llms.Model, temperature float64) *chatProvider {
	return &chatProvider{name: name, client: client, temperature: temperature}
}

func (p *chatProvider) Generate(ctx context.Context, prompt *Prompt, modelID string) (string, error) {
	if err := TextSem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer TextSem.Release(1)

	messages := toMessages(prompt)
	log.InfoContext(ctx, "requesting llm", "provider", p.name, "model", modelID)
	resp, err := p.client.GenerateContent(ctx, messages,
		llms.WithModel(modelID),
		llms.WithTemperature(p.temperature),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// toMessages instruction 合并为 system, content 依次作为 human 消息的片段
func toMessages(prompt *Prompt) []llms.MessageContent {
	var parts []llms.ContentPart
	for _, s := range prompt.Segments {
		if s.Kind == SegmentContent {
			parts = append(parts, llms.TextPart(s.Text))
		}
	}
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(prompt.Instructions())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: parts,
		},
	}
}
