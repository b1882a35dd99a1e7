package mail

import (
	"Sodium/internal/api/config"
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

var ErrMailRejected = errors.New("mail api rejected request")

// SendInfo 邮件服务返回的投递信息
type SendInfo struct {
	ID string `json:"id"`
}

// Sender 邮件发送, 调用方在 goroutine 中调用并只记录错误
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) (*SendInfo, error)
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

type senderImpl struct {
	client *resty.Client
	from   string
}

func NewSender(cfg config.MailConfig) Sender {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.ApiKey).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &senderImpl{client: client, from: cfg.From}
}

// Send 发送一封邮件
func (s *senderImpl) Send(ctx context.Context, to, subject, text, html string) (*SendInfo, error) {
	info := &SendInfo{}
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(sendRequest{
			From:    s.from,
			To:      []string{to},
			Subject: subject,
			Text:    text,
			HTML:    html,
		}).
		SetResult(info).
		Post("/emails")
	if err != nil {
		return nil, fmt.Errorf("failed to call mail api: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrMailRejected, resp.StatusCode())
	}
	log.InfoContext(ctx, "mail sent", "to", to, "subject", subject, "id", info.ID)
	return info, nil
}
