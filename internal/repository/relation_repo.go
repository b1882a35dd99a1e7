package repository

import (
	"Sodium/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationRepo 角色的关注与对话关系
type RelationRepo interface {
	AddFollower(ctx context.Context, userID, characterID uint64) (bool, error)
	RemoveFollower(ctx context.Context, userID, characterID uint64) (bool, error)
	IsFollowing(ctx context.Context, userID, characterID uint64) (bool, error)
	CountFollowers(ctx context.Context, characterID uint64) (int64, error)
	GetFollowingIds(ctx context.Context, userID uint64) ([]uint64, error)
	AddCommunicator(ctx context.Context, userID, characterID uint64) (bool, error)
	HasCommunicated(ctx context.Context, userID, characterID uint64) (bool, error)
	CountCommunicators(ctx context.Context, characterID uint64) (int64, error)
	GetCommunicationIds(ctx context.Context, userID uint64) ([]uint64, error)
	DeleteByCharacter(ctx context.Context, characterID uint64) (int64, error)
}

type RelationRepoImpl struct {
	db *gorm.DB
}

func NewRelationRepo(db *gorm.DB) RelationRepo {
	return &RelationRepoImpl{db: db}
}

// AddFollower 插入关注关系，已存在时返回 false
func (s *RelationRepoImpl) AddFollower(ctx context.Context, userID, characterID uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CharacterFollower{UserID: userID, CharacterID: characterID})
	return result.RowsAffected == 1, result.Error
}

// RemoveFollower 删除关注关系，不存在时返回 false
func (s *RelationRepoImpl) RemoveFollower(ctx context.Context, userID, characterID uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Delete(&model.CharacterFollower{})
	return result.RowsAffected == 1, result.Error
}

func (s *RelationRepoImpl) IsFollowing(ctx context.Context, userID, characterID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.CharacterFollower{}).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Count(&count).Error
	return count > 0, err
}

func (s *RelationRepoImpl) CountFollowers(ctx context.Context, characterID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.CharacterFollower{}).
		Where("character_id = ?", characterID).
		Count(&count).Error
	return count, err
}

// GetFollowingIds 用户关注的角色ID
func (s *RelationRepoImpl) GetFollowingIds(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&model.CharacterFollower{}).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Pluck("character_id", &ids).Error
	return ids, err
}

// AddCommunicator 插入对话关系，已存在时返回 false
func (s *RelationRepoImpl) AddCommunicator(ctx context.Context, userID, characterID uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CharacterCommunicator{UserID: userID, CharacterID: characterID})
	return result.RowsAffected == 1, result.Error
}

func (s *RelationRepoImpl) HasCommunicated(ctx context.Context, userID, characterID uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.CharacterCommunicator{}).
		Where("user_id = ? AND character_id = ?", userID, characterID).
		Count(&count).Error
	return count > 0, err
}

func (s *RelationRepoImpl) CountCommunicators(ctx context.Context, characterID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.CharacterCommunicator{}).
		Where("character_id = ?", characterID).
		Count(&count).Error
	return count, err
}

// GetCommunicationIds 用户对话过的角色ID
func (s *RelationRepoImpl) GetCommunicationIds(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).
		Model(&model.CharacterCommunicator{}).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Pluck("character_id", &ids).Error
	return ids, err
}

// DeleteByCharacter 删除角色的全部关系, 返回被删除的关注数
func (s *RelationRepoImpl) DeleteByCharacter(ctx context.Context, characterID uint64) (int64, error) {
	db := s.db.WithContext(ctx)
	result := db.Where("character_id = ?", characterID).Delete(&model.CharacterFollower{})
	if result.Error != nil {
		return 0, result.Error
	}
	if err := db.Where("character_id = ?", characterID).Delete(&model.CharacterCommunicator{}).Error; err != nil {
		return 0, err
	}
	return result.RowsAffected, nil
}
