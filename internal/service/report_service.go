package service

import (
	"Sodium/internal/model"
	"Sodium/internal/pkg/consts"
	"Sodium/internal/pkg/redis"
	"Sodium/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"time"
)

// reportWindow 同一举报人对同一用户的举报间隔
const reportWindow = 24 * time.Hour

const reportSuspensionReason = "Too many reports from the community"

type ReportService interface {
	ReportUser(ctx context.Context, reporterID, targetID uint64, reason string) error
}

type ReportServiceImpl struct {
	userRepo  repository.UserRepo
	uow       repository.UnitOfWork
	store     redis.Store
	suspender SuspendService
	threshold int64
}

func NewReportService(
	userRepo repository.UserRepo,
	uow repository.UnitOfWork,
	store redis.Store,
	suspender SuspendService,
	threshold int,
) ReportService {
	return &ReportServiceImpl{
		userRepo:  userRepo,
		uow:       uow,
		store:     store,
		suspender: suspender,
		threshold: int64(threshold),
	}
}

// ReportUser 累计举报, 达到阈值时在同一事务内清零并登记一次封禁, 失败时释放举报锁
func (s *ReportServiceImpl) ReportUser(ctx context.Context, reporterID, targetID uint64, reason string) error {
	if reporterID == targetID {
		return ErrReportSelf
	}
	target, err := s.userRepo.GetUserById(ctx, targetID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrUserNotFound
	}

	lockKey := fmt.Sprintf("%s%d:%d", consts.UserReportLock, reporterID, targetID)
	ok, err := s.store.TryLock(ctx, lockKey, reporterID, reportWindow)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReportDuplicate
	}

	var (
		reached bool
		suspend *model.Suspend
		status  string
	)
	err = s.uow.Transaction(ctx, func(repos *repository.Repos) error {
		count, err := repos.Moderation.IncrUserReport(ctx, targetID, reason)
		if err != nil {
			return err
		}
		if count < s.threshold {
			return nil
		}
		reached = true
		if err = repos.Moderation.ResetUserReport(ctx, targetID); err != nil {
			return err
		}
		if target.IsAdmin() || target.Status == model.UserStatusBanned {
			return nil
		}
		suspend, status, err = s.suspender.ApplySuspension(ctx, repos, targetID, reportSuspensionReason)
		return err
	})
	if err != nil {
		if unlockErr := s.store.UnLock(ctx, lockKey, reporterID); unlockErr != nil {
			log.WarnContext(ctx, "failed to release report lock", "key", lockKey, "err", unlockErr)
		}
		return fmt.Errorf("report user: %w", err)
	}

	log.InfoContext(ctx, "user reported", "reporter_id", reporterID, "target_id", targetID, "threshold_reached", reached)
	if suspend != nil {
		s.suspender.AfterSuspension(ctx, target, suspend, status)
	}
	return nil
}
