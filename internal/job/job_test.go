package job

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/mail"
	"Sodium/internal/pkg/mongo"
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	to, subject string
	err         error
}

func (c *captureSender) Send(_ context.Context, to, subject, _, _ string) (*mail.SendInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.to, c.subject = to, subject
	return &mail.SendInfo{ID: "msg-1"}, nil
}

type captureNotifier struct {
	got []*mongo.Notification
}

func (c *captureNotifier) Notify(_ context.Context, n *mongo.Notification) error {
	c.got = append(c.got, n)
	return nil
}

func (c *captureNotifier) List(context.Context, uint64, *dto.PageDTO) ([]*mongo.Notification, error) {
	return c.got, nil
}

func (c *captureNotifier) UnreadCount(context.Context, uint64) (int64, error) {
	return int64(len(c.got)), nil
}

func (c *captureNotifier) MarkAllRead(context.Context, uint64) error {
	return nil
}

func (c *captureNotifier) MarkRead(context.Context, uint64, string) error {
	return nil
}

func TestSendEmailJob(t *testing.T) {
	sender := &captureSender{}
	payload, err := json.Marshal(&cron.EmailPayload{To: "bob@example.com", Subject: "Nova misses you"})
	require.NoError(t, err)

	require.NoError(t, NewSendEmailJob(sender).Handle(context.Background(), payload))
	assert.Equal(t, "bob@example.com", sender.to)
	assert.Equal(t, "Nova misses you", sender.subject)
}

func TestSendEmailJobErrors(t *testing.T) {
	ctx := context.Background()

	err := NewSendEmailJob(&captureSender{}).Handle(ctx, []byte("{not json"))
	assert.Error(t, err)

	err = NewSendEmailJob(&captureSender{}).Handle(ctx, []byte(`{"subject":"hi"}`))
	assert.ErrorIs(t, err, ErrEmptyRecipient)

	boom := errors.New("smtp down")
	err = NewSendEmailJob(&captureSender{err: boom}).Handle(ctx, []byte(`{"to":"a@b.c"}`))
	assert.ErrorIs(t, err, boom)
}

func TestPushNotificationJob(t *testing.T) {
	notifier := &captureNotifier{}
	payload, err := json.Marshal(&cron.NotificationPayload{
		ReceiverID: 7,
		Type:       mongo.NotifySuspensionLifted,
		Message:    "Your suspension has ended",
	})
	require.NoError(t, err)

	require.NoError(t, NewPushNotificationJob(notifier).Handle(context.Background(), payload))
	require.Len(t, notifier.got, 1)
	assert.Equal(t, uint64(7), notifier.got[0].ReceiverID)
	assert.Equal(t, mongo.NotifySuspensionLifted, notifier.got[0].Type)
}
