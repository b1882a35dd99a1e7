package model

import (
	"time"
)

type Comment struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	CharacterID uint64    `gorm:"not null;index:idx_comment_character_id" json:"characterId"`
	UserID      uint64    `gorm:"not null;index:idx_comment_user_id" json:"userId"`
	ParentID    *uint64   `gorm:"index:idx_parent_id" json:"parentId"` // nil 表示一级评论
	Content     string    `gorm:"type:varchar(1000);not null" json:"content"`
	ReplyCount  int64     `gorm:"not null;default:0" json:"replyCount"`
	LikesCount  int64     `gorm:"not null;default:0" json:"likesCount"`
	ReportCount int64     `gorm:"not null;default:0" json:"reportCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Comment) TableName() string {
	return "comments"
}

type CommentLike struct {
	UserID    uint64    `gorm:"primaryKey" json:"userId"`
	CommentID uint64    `gorm:"primaryKey;index:idx_like_comment_id" json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (CommentLike) TableName() string {
	return "comment_likes"
}

// CommentReport 每个用户对同一评论只计一次举报
type CommentReport struct {
	UserID    uint64    `gorm:"primaryKey"`
	CommentID uint64    `gorm:"primaryKey;index:idx_report_comment_id"`
	CreatedAt time.Time
}

func (CommentReport) TableName() string {
	return "comment_reports"
}
