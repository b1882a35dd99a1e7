package dto

import "time"

// CreateCommentDTO 创建评论, parentId 为空表示一级评论
type CreateCommentDTO struct {
	Content  string  `json:"content" validate:"required,min=1,max=1000"`
	ParentID *uint64 `json:"parentId" validate:"omitempty,min=1"`
}

// CommentDTO 评论详情
type CommentDTO struct {
	ID          uint64    `json:"id"`
	CharacterID uint64    `json:"characterId"`
	UserID      uint64    `json:"userId"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatarUrl"`
	ParentID    *uint64   `json:"parentId"`
	Content     string    `json:"content"`
	ReplyCount  int64     `json:"replyCount"`
	LikesCount  int64     `json:"likesCount"`
	IsLiked     bool      `json:"isLiked"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LikeResultDTO 点赞切换结果
type LikeResultDTO struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}
