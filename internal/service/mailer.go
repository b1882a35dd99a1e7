package service

import (
	"Sodium/internal/pkg/mail"
	"context"
	log "log/slog"
)

// sendMailAsync 邮件在后台发送, 失败只记录日志
func sendMailAsync(ctx context.Context, sender mail.Sender, to, subject, text, html string) {
	if sender == nil || to == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		info, err := sender.Send(ctx, to, subject, text, html)
		if err != nil {
			log.ErrorContext(ctx, "failed to send mail", "to", to, "subject", subject, "err", err)
			return
		}
		log.InfoContext(ctx, "mail sent", "to", to, "id", info.ID)
	}()
}
