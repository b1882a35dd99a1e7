package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/mongo"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyKeepsMostRecentPerReceiver(t *testing.T) {
	repo := &fakeNotificationRepo{}
	notifier := NewNotificationService(repo)
	ctx := context.Background()

	for i := 0; i < mongo.NotificationCapacity+5; i++ {
		require.NoError(t, notifier.Notify(ctx, &mongo.Notification{
			ReceiverID: 1,
			Type:       mongo.NotifySystem,
			Message:    fmt.Sprintf("n%d", i),
		}))
	}
	require.NoError(t, notifier.Notify(ctx, &mongo.Notification{ReceiverID: 2, Type: mongo.NotifySystem, Message: "other"}))

	unread, err := notifier.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, mongo.NotificationCapacity, unread)

	page, err := notifier.List(ctx, 1, &dto.PageDTO{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, fmt.Sprintf("n%d", mongo.NotificationCapacity+4), page[0].Message)

	require.NoError(t, notifier.MarkRead(ctx, 1, page[0].ID.Hex()))
	assert.ErrorIs(t, notifier.MarkRead(ctx, 2, page[1].ID.Hex()), mongo.ErrNotificationNotFound)

	require.NoError(t, notifier.MarkAllRead(ctx, 1))
	unread, err = notifier.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, unread)

	unread, err = notifier.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}

func TestNotifyRequiresReceiver(t *testing.T) {
	notifier := NewNotificationService(&fakeNotificationRepo{})
	err := notifier.Notify(context.Background(), &mongo.Notification{Type: mongo.NotifySystem})
	assert.ErrorIs(t, err, ErrParamInvalid)
}
