package repository

import (
	"Sodium/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type CharacterRepo interface {
	CreateCharacter(ctx context.Context, character *model.Character) error
	GetCharacterById(ctx context.Context, id uint64) (*model.Character, error)
	GetCharactersByIds(ctx context.Context, ids []uint64) ([]*model.Character, error)
	ListApproved(ctx context.Context, limit, offset int) ([]*model.Character, error)
	ListByCreator(ctx context.Context, creatorID uint64, onlyApproved bool, limit, offset int) ([]*model.Character, error)
	SearchByName(ctx context.Context, keyword string, limit, offset int) ([]*model.Character, error)
	UpdateCharacter(ctx context.Context, id uint64, fields map[string]any) error
	DeleteCharacter(ctx context.Context, id uint64) error
	IncrFollowerCount(ctx context.Context, id uint64, delta int) error
	IncrCommunicatorCount(ctx context.Context, id uint64, delta int) error
}

type CharacterRepoImpl struct {
	db *gorm.DB
}

func NewCharacterRepo(db *gorm.DB) CharacterRepo {
	return &CharacterRepoImpl{db: db}
}

func (s *CharacterRepoImpl) CreateCharacter(ctx context.Context, character *model.Character) error {
	return s.db.WithContext(ctx).Create(character).Error
}

// GetCharacterById 获取角色，不存在返回 nil
func (s *CharacterRepoImpl) GetCharacterById(ctx context.Context, id uint64) (*model.Character, error) {
	var character model.Character
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&character).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &character, nil
}

func (s *CharacterRepoImpl) GetCharactersByIds(ctx context.Context, ids []uint64) ([]*model.Character, error) {
	var characters []*model.Character
	if len(ids) == 0 {
		return characters, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&characters).Error
	return characters, err
}

// ListApproved 按粉丝数倒序列出已审核角色
func (s *CharacterRepoImpl) ListApproved(ctx context.Context, limit, offset int) ([]*model.Character, error) {
	var characters []*model.Character
	err := s.db.WithContext(ctx).
		Where("is_approved = ?", true).
		Order("follower_count desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&characters).Error
	return characters, err
}

func (s *CharacterRepoImpl) ListByCreator(ctx context.Context, creatorID uint64, onlyApproved bool, limit, offset int) ([]*model.Character, error) {
	var characters []*model.Character
	query := s.db.WithContext(ctx).Where("creator_id = ?", creatorID)
	if onlyApproved {
		query = query.Where("is_approved = ?", true)
	}
	err := query.Order("id desc").Limit(limit).Offset(offset).Find(&characters).Error
	return characters, err
}

// SearchByName 搜索引擎不可用时的兜底查询
func (s *CharacterRepoImpl) SearchByName(ctx context.Context, keyword string, limit, offset int) ([]*model.Character, error) {
	var characters []*model.Character
	err := s.db.WithContext(ctx).
		Where("is_approved = ? AND name LIKE ?", true, "%"+keyword+"%").
		Order("follower_count desc").
		Limit(limit).
		Offset(offset).
		Find(&characters).Error
	return characters, err
}

func (s *CharacterRepoImpl) UpdateCharacter(ctx context.Context, id uint64, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", id).Updates(fields).Error
}

func (s *CharacterRepoImpl) DeleteCharacter(ctx context.Context, id uint64) error {
	return expectOne(s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Character{}))
}

// IncrFollowerCount 原子增减粉丝数，结果不允许为负
func (s *CharacterRepoImpl) IncrFollowerCount(ctx context.Context, id uint64, delta int) error {
	return expectOne(s.db.WithContext(ctx).
		Model(&model.Character{}).
		Where("id = ? AND follower_count + ? >= 0", id, delta).
		UpdateColumn("follower_count", gorm.Expr("follower_count + ?", delta)))
}

// IncrCommunicatorCount 原子增减对话者数
func (s *CharacterRepoImpl) IncrCommunicatorCount(ctx context.Context, id uint64, delta int) error {
	return expectOne(s.db.WithContext(ctx).
		Model(&model.Character{}).
		Where("id = ? AND communicator_count + ? >= 0", id, delta).
		UpdateColumn("communicator_count", gorm.Expr("communicator_count + ?", delta)))
}
