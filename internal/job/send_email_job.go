package job

import (
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/mail"
	"context"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/goccy/go-json"
)

var ErrEmptyRecipient = errors.New("email payload has no recipient")

// SendEmailJob 延时邮件, 用于首次对话后的回访提醒
type SendEmailJob struct {
	sender mail.Sender
}

func NewSendEmailJob(sender mail.Sender) *SendEmailJob {
	return &SendEmailJob{sender: sender}
}

func (s *SendEmailJob) Handle(ctx context.Context, payload []byte) error {
	var p cron.EmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid email payload: %w", err)
	}
	if p.To == "" {
		return ErrEmptyRecipient
	}

	info, err := s.sender.Send(ctx, p.To, p.Subject, p.Text, p.HTML)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "scheduled email sent", "to", p.To, "id", info.ID)
	return nil
}
