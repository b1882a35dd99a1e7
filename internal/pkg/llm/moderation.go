package llm

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

var ErrModerationVerdict = errors.New("unrecognized moderation verdict")

const (
	verdictSafe   = "SAFE"
	verdictUnsafe = "UNSAFE"
)

// Moderator 内容审核网关
type Moderator interface {
	// ModerateText 出错时按不安全处理
	ModerateText(ctx context.Context, content string) (bool, error)
	// ModerateImage 出错时由调用方返回 500
	ModerateImage(ctx context.Context, data []byte, mimeType string) (bool, error)
}

type moderatorImpl struct {
	client      llms.Model
	textModel   string
	visionModel string
	textPrompt  string
	imagePrompt string
}

func NewModerator(client llms.Model, textModel, visionModel string) (Moderator, error) {
	tpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &moderatorImpl{
		client:      client,
		textModel:   textModel,
		visionModel: visionModel,
		textPrompt:  tpl.Moderation.Text,
		imagePrompt: tpl.Moderation.Image,
	}, nil
}

func (m *moderatorImpl) ModerateText(ctx context.Context, content string) (bool, error) {
	if strings.TrimSpace(content) == "" {
		return true, nil
	}
	if err := TextSem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer TextSem.Release(1)

	resp, err := m.client.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, m.textPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, content),
	}, llms.WithModel(m.textModel), llms.WithTemperature(0))
	if err != nil {
		log.WarnContext(ctx, "text moderation failed, treating as unsafe", "err", err)
		return false, err
	}
	return parseVerdict(resp)
}

func (m *moderatorImpl) ModerateImage(ctx context.Context, data []byte, mimeType string) (bool, error) {
	if err := ImageSem.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer ImageSem.Release(1)

	resp, err := m.client.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, m.imagePrompt),
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.BinaryPart(mimeType, data)},
		},
	}, llms.WithModel(m.visionModel), llms.WithTemperature(0))
	if err != nil {
		log.ErrorContext(ctx, "image moderation failed", "err", err)
		return false, err
	}
	return parseVerdict(resp)
}

// parseVerdict UNSAFE 优先匹配, 无法识别的回答视为不安全
func parseVerdict(resp *llms.ContentResponse) (bool, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return false, fmt.Errorf("%w: empty response", ErrModerationVerdict)
	}
	answer := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Content))
	switch {
	case strings.Contains(answer, verdictUnsafe):
		return false, nil
	case strings.HasPrefix(answer, verdictSafe):
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrModerationVerdict, answer)
	}
}
