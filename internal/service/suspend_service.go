package service

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/model"
	"Sodium/internal/pkg/cron"
	"Sodium/internal/pkg/mail"
	"Sodium/internal/pkg/mongo"
	"Sodium/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"time"
)

// suspensionMeritPenalty 每次封禁扣除的信誉分
const suspensionMeritPenalty = -2

// SuspendService 账号状态机: active <-> suspended -> banned
type SuspendService interface {
	CheckStatus(ctx context.Context, userID uint64) (*model.User, error)
	EnsureActive(user *model.User) error
	RegisterSuspension(ctx context.Context, userID uint64, reason string) (*model.Suspend, error)
	ApplySuspension(ctx context.Context, repos *repository.Repos, userID uint64, reason string) (*model.Suspend, string, error)
	AfterSuspension(ctx context.Context, user *model.User, suspend *model.Suspend, status string)
	AdminSuspend(ctx context.Context, userID uint64, reason string) (*dto.SuspensionDTO, error)
	GetSuspension(ctx context.Context, userID uint64) (*dto.SuspensionDTO, error)
}

type SuspendServiceImpl struct {
	userRepo     repository.UserRepo
	moderation   repository.ModerationRepo
	uow          repository.UnitOfWork
	notifier     NotificationService
	scheduler    cron.Scheduler
	mailer       mail.Sender
	suspendDays  int
	banThreshold int
	now          func() time.Time
}

func NewSuspendService(
	userRepo repository.UserRepo,
	moderation repository.ModerationRepo,
	uow repository.UnitOfWork,
	notifier NotificationService,
	scheduler cron.Scheduler,
	mailer mail.Sender,
	suspendDays, banThreshold int,
) SuspendService {
	return &SuspendServiceImpl{
		userRepo:     userRepo,
		moderation:   moderation,
		uow:          uow,
		notifier:     notifier,
		scheduler:    scheduler,
		mailer:       mailer,
		suspendDays:  suspendDays,
		banThreshold: banThreshold,
		now:          time.Now,
	}
}

// CheckStatus 读取用户, 封禁到期时在读取时惰性恢复为 active
func (s *SuspendServiceImpl) CheckStatus(ctx context.Context, userID uint64) (*model.User, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status != model.UserStatusSuspended {
		return user, nil
	}

	suspend, err := s.moderation.GetSuspend(ctx, userID)
	if err != nil {
		return nil, err
	}
	if suspend != nil && suspend.SuspensionEndDate.After(s.now()) {
		return user, nil
	}

	if _, err = s.userRepo.ActivateIfSuspended(ctx, userID); err != nil {
		return nil, err
	}
	user.Status = model.UserStatusActive
	return user, nil
}

func (s *SuspendServiceImpl) EnsureActive(user *model.User) error {
	switch user.Status {
	case model.UserStatusBanned:
		return ErrUserBanned
	case model.UserStatusSuspended:
		return ErrUserSuspended
	}
	return nil
}

// RegisterSuspension 封禁次数 +1, 结束时间 = now + count * suspendDays, 达到阈值后永久封禁
func (s *SuspendServiceImpl) RegisterSuspension(ctx context.Context, userID uint64, reason string) (*model.Suspend, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Status == model.UserStatusBanned {
		return s.moderation.GetSuspend(ctx, userID)
	}

	var suspend *model.Suspend
	var status string
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		var err error
		suspend, status, err = s.ApplySuspension(ctx, repos, userID, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("register suspension: %w", err)
	}

	s.AfterSuspension(ctx, user, suspend, status)
	return suspend, nil
}

// ApplySuspension 在调用方事务内登记封禁并更新状态与信誉分, 返回封禁记录与新状态
func (s *SuspendServiceImpl) ApplySuspension(ctx context.Context, repos *repository.Repos, userID uint64, reason string) (*model.Suspend, string, error) {
	suspend, err := repos.Moderation.IncrSuspension(ctx, userID, s.suspendDays, s.now(), reason)
	if err != nil {
		return nil, "", err
	}
	status := model.UserStatusSuspended
	if suspend.SuspensionCount >= s.banThreshold {
		status = model.UserStatusBanned
	}
	if err = repos.Users.SetStatus(ctx, userID, status); err != nil {
		return nil, "", err
	}
	if err = repos.Users.AdjustMerit(ctx, userID, suspensionMeritPenalty); err != nil {
		return nil, "", err
	}
	return suspend, status, nil
}

// AfterSuspension 事务提交后的通知/定时任务/邮件
func (s *SuspendServiceImpl) AfterSuspension(ctx context.Context, user *model.User, suspend *model.Suspend, status string) {
	log.InfoContext(ctx, "user suspended",
		"user_id", user.ID,
		"status", status,
		"count", suspend.SuspensionCount,
		"end", suspend.SuspensionEndDate)

	var message string
	if status == model.UserStatusBanned {
		message = fmt.Sprintf("Your account has been permanently banned. Reason: %s", suspend.Reason)
	} else {
		message = fmt.Sprintf("Your account is suspended until %s. Reason: %s",
			suspend.SuspensionEndDate.UTC().Format(time.RFC1123), suspend.Reason)
	}

	notifyQuietly(ctx, s.notifier, &mongo.Notification{
		ReceiverID: user.ID,
		Type:       mongo.NotifySuspension,
		Message:    message,
	})

	if status == model.UserStatusSuspended && s.scheduler != nil {
		err := s.scheduler.Schedule(ctx, suspend.SuspensionEndDate, cron.JobPushNotification, &cron.NotificationPayload{
			ReceiverID: user.ID,
			Type:       mongo.NotifySuspensionLifted,
			Message:    "Your suspension has ended. Welcome back!",
		})
		if err != nil {
			log.ErrorContext(ctx, "failed to schedule suspension lifted notification", "user_id", user.ID, "err", err)
		}
	}

	sendMailAsync(ctx, s.mailer, user.Email, "Account status update", message, "")
}

// AdminSuspend 管理员手动封禁, 不能封禁管理员
func (s *SuspendServiceImpl) AdminSuspend(ctx context.Context, userID uint64, reason string) (*dto.SuspensionDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsAdmin() {
		return nil, ErrSuspendAdmin
	}
	if _, err = s.RegisterSuspension(ctx, userID, reason); err != nil {
		return nil, err
	}
	return s.GetSuspension(ctx, userID)
}

func (s *SuspendServiceImpl) GetSuspension(ctx context.Context, userID uint64) (*dto.SuspensionDTO, error) {
	user, err := s.CheckStatus(ctx, userID)
	if err != nil {
		return nil, err
	}
	suspend, err := s.moderation.GetSuspend(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &dto.SuspensionDTO{
		UserID: userID,
		Status: user.Status,
	}
	if suspend != nil {
		result.SuspensionCount = suspend.SuspensionCount
		result.SuspensionEndDate = suspend.SuspensionEndDate
		result.Reason = suspend.Reason
	}
	return result, nil
}
