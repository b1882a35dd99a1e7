package repository

import (
	"Sodium/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommentRepo interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentById(ctx context.Context, id uint64) (*model.Comment, error)
	GetComments(ctx context.Context, characterID uint64, limit, offset int) ([]*model.Comment, error)
	GetReplies(ctx context.Context, parentID uint64) ([]*model.Comment, error)
	IncrReplyCount(ctx context.Context, id uint64, delta int) error
	IncrLikesCount(ctx context.Context, id uint64, delta int) error
	IncrReportCount(ctx context.Context, id uint64) (int64, error)
	AddLike(ctx context.Context, userID, commentID uint64) (bool, error)
	RemoveLike(ctx context.Context, userID, commentID uint64) (bool, error)
	CountLikes(ctx context.Context, commentID uint64) (int64, error)
	GetLikedCommentIds(ctx context.Context, userID uint64, commentIDs []uint64) ([]uint64, error)
	AddReport(ctx context.Context, userID, commentID uint64) (bool, error)
	DeleteWithReplies(ctx context.Context, id uint64) ([]uint64, error)
	DeleteByCharacter(ctx context.Context, characterID uint64) error
}

type CommentRepoImpl struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) CommentRepo {
	return &CommentRepoImpl{db: db}
}

func (s *CommentRepoImpl) CreateComment(ctx context.Context, comment *model.Comment) error {
	return s.db.WithContext(ctx).Create(comment).Error
}

// GetCommentById 获取评论，不存在返回 nil
func (s *CommentRepoImpl) GetCommentById(ctx context.Context, id uint64) (*model.Comment, error) {
	var comment model.Comment
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// GetComments 角色下的一级评论，按时间倒序
func (s *CommentRepoImpl) GetComments(ctx context.Context, characterID uint64, limit, offset int) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := s.db.WithContext(ctx).
		Where("character_id = ? AND parent_id IS NULL", characterID).
		Order("created_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	return comments, err
}

// GetReplies 一级评论下的回复，按时间正序
func (s *CommentRepoImpl) GetReplies(ctx context.Context, parentID uint64) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := s.db.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Order("created_at asc, id asc").
		Find(&comments).Error
	return comments, err
}

func (s *CommentRepoImpl) IncrReplyCount(ctx context.Context, id uint64, delta int) error {
	return s.incr(ctx, id, "reply_count", delta)
}

func (s *CommentRepoImpl) IncrLikesCount(ctx context.Context, id uint64, delta int) error {
	return s.incr(ctx, id, "likes_count", delta)
}

// IncrReportCount 举报数 +1 并返回最新值
func (s *CommentRepoImpl) IncrReportCount(ctx context.Context, id uint64) (int64, error) {
	if err := s.incr(ctx, id, "report_count", 1); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.Comment{}).
		Select("report_count").
		Where("id = ?", id).
		Scan(&count).Error
	return count, err
}

func (s *CommentRepoImpl) AddLike(ctx context.Context, userID, commentID uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CommentLike{UserID: userID, CommentID: commentID})
	return result.RowsAffected == 1, result.Error
}

func (s *CommentRepoImpl) RemoveLike(ctx context.Context, userID, commentID uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&model.CommentLike{})
	return result.RowsAffected == 1, result.Error
}

func (s *CommentRepoImpl) CountLikes(ctx context.Context, commentID uint64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.CommentLike{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	return count, err
}

// GetLikedCommentIds 批量判断用户点赞过哪些评论
func (s *CommentRepoImpl) GetLikedCommentIds(ctx context.Context, userID uint64, commentIDs []uint64) ([]uint64, error) {
	var ids []uint64
	if len(commentIDs) == 0 {
		return ids, nil
	}
	err := s.db.WithContext(ctx).
		Model(&model.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	return ids, err
}

// AddReport 记录一次举报，重复举报返回 false
func (s *CommentRepoImpl) AddReport(ctx context.Context, userID, commentID uint64) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CommentReport{UserID: userID, CommentID: commentID})
	return result.RowsAffected == 1, result.Error
}

// DeleteWithReplies 删除评论及其直接回复，返回被删除的评论ID
func (s *CommentRepoImpl) DeleteWithReplies(ctx context.Context, id uint64) ([]uint64, error) {
	db := s.db.WithContext(ctx)

	var replyIDs []uint64
	if err := db.Model(&model.Comment{}).Where("parent_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
		return nil, err
	}
	ids := append([]uint64{id}, replyIDs...)

	if err := db.Where("comment_id IN ?", ids).Delete(&model.CommentLike{}).Error; err != nil {
		return nil, err
	}
	if err := db.Where("comment_id IN ?", ids).Delete(&model.CommentReport{}).Error; err != nil {
		return nil, err
	}
	result := db.Where("id IN ?", ids).Delete(&model.Comment{})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != int64(len(ids)) {
		return nil, ErrRowsAffected
	}
	return ids, nil
}

// DeleteByCharacter 删除角色下全部评论及点赞
func (s *CommentRepoImpl) DeleteByCharacter(ctx context.Context, characterID uint64) error {
	db := s.db.WithContext(ctx)
	sub := db.Model(&model.Comment{}).Select("id").Where("character_id = ?", characterID)
	if err := db.Where("comment_id IN (?)", sub).Delete(&model.CommentLike{}).Error; err != nil {
		return err
	}
	if err := db.Where("comment_id IN (?)", sub).Delete(&model.CommentReport{}).Error; err != nil {
		return err
	}
	return db.Where("character_id = ?", characterID).Delete(&model.Comment{}).Error
}

func (s *CommentRepoImpl) incr(ctx context.Context, id uint64, column string, delta int) error {
	return expectOne(s.db.WithContext(ctx).
		Model(&model.Comment{}).
		Where("id = ? AND "+column+" + ? >= 0", id, delta).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)))
}
