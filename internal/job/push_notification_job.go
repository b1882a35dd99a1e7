package job

import (
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/service"
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// PushNotificationJob 延时站内通知, 例如封禁到期提醒
type PushNotificationJob struct {
	notifier service.NotificationService
}

func NewPushNotificationJob(notifier service.NotificationService) *PushNotificationJob {
	return &PushNotificationJob{notifier: notifier}
}

func (s *PushNotificationJob) Handle(ctx context.Context, payload []byte) error {
	var p cron.NotificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}

	return s.notifier.Notify(ctx, &mongo.Notification{
		ReceiverID:  p.ReceiverID,
		EmitterID:   p.EmitterID,
		CharacterID: p.CharacterID,
		Type:        p.Type,
		Message:     p.Message,
	})
}
