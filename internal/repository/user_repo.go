package repository

import (
	"Sodium/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserById(ctx context.Context, id uint64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUsersByIds(ctx context.Context, ids []uint64) ([]*model.User, error)
	UpdateUser(ctx context.Context, id uint64, fields map[string]any) error
	SetStatus(ctx context.Context, id uint64, status string) error
	ActivateIfSuspended(ctx context.Context, id uint64) (bool, error)
	IncrTotalFollowers(ctx context.Context, id uint64, delta int) error
	AdjustMerit(ctx context.Context, id uint64, delta int) error
}

type UserRepoImpl struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepo {
	return &UserRepoImpl{db: db}
}

// CreateUser 创建用户
func (s *UserRepoImpl) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

// GetUserById 根据ID获取用户，不存在返回 nil
func (s *UserRepoImpl) GetUserById(ctx context.Context, id uint64) (*model.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserRepoImpl) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *UserRepoImpl) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.first(ctx, "username = ?", username)
}

func (s *UserRepoImpl) GetUsersByIds(ctx context.Context, ids []uint64) ([]*model.User, error) {
	var users []*model.User
	if len(ids) == 0 {
		return users, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// UpdateUser 按字段更新
func (s *UserRepoImpl) UpdateUser(ctx context.Context, id uint64, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// SetStatus 修改账号状态, banned 为终态不可覆盖
func (s *UserRepoImpl) SetStatus(ctx context.Context, id uint64, status string) error {
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND status <> ?", id, model.UserStatusBanned).
		Update("status", status).Error
}

// ActivateIfSuspended 仅当仍处于 suspended 时恢复为 active
func (s *UserRepoImpl) ActivateIfSuspended(ctx context.Context, id uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND status = ?", id, model.UserStatusSuspended).
		Update("status", model.UserStatusActive)
	return result.RowsAffected == 1, result.Error
}

// IncrTotalFollowers 原子增减创作者的总粉丝数
func (s *UserRepoImpl) IncrTotalFollowers(ctx context.Context, id uint64, delta int) error {
	return expectOne(s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND total_followers + ? >= 0", id, delta).
		UpdateColumn("total_followers", gorm.Expr("total_followers + ?", delta)))
}

// AdjustMerit 原子调整信誉分并钳制到 [MeritMin, MeritMax]
func (s *UserRepoImpl) AdjustMerit(ctx context.Context, id uint64, delta int) error {
	expr := gorm.Expr(
		"CASE WHEN merit + ? > ? THEN ? WHEN merit + ? < ? THEN ? ELSE merit + ? END",
		delta, model.MeritMax, model.MeritMax,
		delta, model.MeritMin, model.MeritMin,
		delta,
	)
	return s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		UpdateColumn("merit", expr).Error
}

func (s *UserRepoImpl) first(ctx context.Context, query string, args ...any) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where(query, args...).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
