package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/pkg/util"
	"context"
	log "log/slog"
)

type NotificationService interface {
	Notify(ctx context.Context, n *mongo.Notification) error
	List(ctx context.Context, userID uint64, page *dto.PageDTO) ([]*mongo.Notification, error)
	UnreadCount(ctx context.Context, userID uint64) (int64, error)
	MarkAllRead(ctx context.Context, userID uint64) error
	MarkRead(ctx context.Context, userID uint64, id string) error
}

type NotificationServiceImpl struct {
	notificationRepo mongo.NotificationRepo
}

func NewNotificationService(notificationRepo mongo.NotificationRepo) NotificationService {
	return &NotificationServiceImpl{notificationRepo: notificationRepo}
}

// Notify 写入通知, 每个接收者只保留最近 NotificationCapacity 条
func (s *NotificationServiceImpl) Notify(ctx context.Context, n *mongo.Notification) error {
	if n.ReceiverID == 0 {
		return ErrParamInvalid
	}
	return s.notificationRepo.AppendNotification(ctx, n, mongo.NotificationCapacity)
}

func (s *NotificationServiceImpl) List(ctx context.Context, userID uint64, page *dto.PageDTO) ([]*mongo.Notification, error) {
	limit, offset := util.PageToLimit(page.Page, page.PageSize)
	list, err := s.notificationRepo.GetNotificationList(ctx, userID, int64(limit), int64(offset))
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*mongo.Notification{}
	}
	return list, nil
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	return s.notificationRepo.GetUnreadCount(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAllRead(ctx context.Context, userID uint64) error {
	return s.notificationRepo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationServiceImpl) MarkRead(ctx context.Context, userID uint64, id string) error {
	return s.notificationRepo.MarkAsRead(ctx, userID, id)
}

// notifyQuietly 通知失败不影响主流程, 只记录日志
func notifyQuietly(ctx context.Context, notifier NotificationService, n *mongo.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		log.ErrorContext(ctx, "failed to push notification",
			"type", n.Type,
			"receiver_id", n.ReceiverID,
			"err", err)
	}
}
