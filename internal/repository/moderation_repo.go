package repository

import (
	"Sodium/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModerationRepo 举报累计与封禁记录
type ModerationRepo interface {
	GetSuspend(ctx context.Context, userID uint64) (*model.Suspend, error)
	IncrSuspension(ctx context.Context, userID uint64, days int, now time.Time, reason string) (*model.Suspend, error)
	IncrUserReport(ctx context.Context, userID uint64, reason string) (int64, error)
	ResetUserReport(ctx context.Context, userID uint64) error
}

type ModerationRepoImpl struct {
	db *gorm.DB
}

func NewModerationRepo(db *gorm.DB) ModerationRepo {
	return &ModerationRepoImpl{db: db}
}

// GetSuspend 获取封禁记录，不存在返回 nil
func (s *ModerationRepoImpl) GetSuspend(ctx context.Context, userID uint64) (*model.Suspend, error) {
	var suspend model.Suspend
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&suspend).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &suspend, nil
}

// IncrSuspension 封禁次数原子 +1，并按次数重新计算结束时间: now + count * days
func (s *ModerationRepoImpl) IncrSuspension(ctx context.Context, userID uint64, days int, now time.Time, reason string) (*model.Suspend, error) {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Suspend{UserID: userID, SuspensionEndDate: now}).Error
	if err != nil {
		return nil, err
	}

	err = expectOne(db.Model(&model.Suspend{}).
		Where("user_id = ?", userID).
		UpdateColumn("suspension_count", gorm.Expr("suspension_count + ?", 1)))
	if err != nil {
		return nil, err
	}

	suspend, err := s.GetSuspend(ctx, userID)
	if err != nil {
		return nil, err
	}
	if suspend == nil {
		return nil, ErrRowsAffected
	}

	suspend.SuspensionEndDate = now.Add(time.Duration(suspend.SuspensionCount) * time.Duration(days) * 24 * time.Hour)
	suspend.Reason = reason
	err = db.Model(&model.Suspend{}).
		Where("id = ?", suspend.ID).
		Updates(map[string]any{
			"suspension_end_date": suspend.SuspensionEndDate,
			"reason":              reason,
		}).Error
	if err != nil {
		return nil, err
	}
	return suspend, nil
}

// IncrUserReport 举报数原子 +1 并返回最新值
func (s *ModerationRepoImpl) IncrUserReport(ctx context.Context, userID uint64, reason string) (int64, error) {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.UserReport{ReportedUserID: userID}).Error
	if err != nil {
		return 0, err
	}

	err = expectOne(db.Model(&model.UserReport{}).
		Where("reported_user_id = ?", userID).
		Updates(map[string]any{
			"report_count": gorm.Expr("report_count + ?", 1),
			"last_reason":  reason,
		}))
	if err != nil {
		return 0, err
	}

	var count int64
	err = db.Model(&model.UserReport{}).
		Select("report_count").
		Where("reported_user_id = ?", userID).
		Scan(&count).Error
	return count, err
}

func (s *ModerationRepoImpl) ResetUserReport(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).
		Model(&model.UserReport{}).
		Where("reported_user_id = ?", userID).
		UpdateColumn("report_count", 0).Error
}
