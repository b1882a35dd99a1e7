package dto

import "time"

// CreateCharacterDTO multipart 表单创建角色
type CreateCharacterDTO struct {
	Name            string `form:"name" validate:"required,min=1,max=60"`
	Description     string `form:"description" validate:"omitempty,max=1000"`
	Gender          string `form:"gender" validate:"required,max=20"`
	Personality     string `form:"personality" validate:"required,min=10,max=2000"`
	Opening         string `form:"opening" validate:"required,min=1,max=1000"`
	Model           string `form:"model" validate:"required,max=40"`
	MBTI            string `form:"mbti" validate:"omitempty,len=4,alpha"`
	Enneagram       string `form:"enneagram" validate:"omitempty,max=10"`
	AttachmentStyle string `form:"attachmentStyle" validate:"omitempty,max=30"`
	Zodiac          string `form:"zodiac" validate:"omitempty,max=20"`
}

// UpdateCharacterDTO 修改角色, 未传的字段保持不变
type UpdateCharacterDTO struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=60"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	Gender          *string `json:"gender" validate:"omitempty,max=20"`
	Personality     *string `json:"personality" validate:"omitempty,min=10,max=2000"`
	Opening         *string `json:"opening" validate:"omitempty,min=1,max=1000"`
	Model           *string `json:"model" validate:"omitempty,max=40"`
	MBTI            *string `json:"mbti" validate:"omitempty,max=4"`
	Enneagram       *string `json:"enneagram" validate:"omitempty,max=10"`
	AttachmentStyle *string `json:"attachmentStyle" validate:"omitempty,max=30"`
	Zodiac          *string `json:"zodiac" validate:"omitempty,max=20"`
}

// CharacterDTO 角色详情
type CharacterDTO struct {
	ID                uint64    `json:"id"`
	CreatorID         uint64    `json:"creatorId"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Gender            string    `json:"gender"`
	Personality       string    `json:"personality"`
	Opening           string    `json:"opening"`
	Model             string    `json:"model"`
	MBTI              string    `json:"mbti,omitempty"`
	Enneagram         string    `json:"enneagram,omitempty"`
	AttachmentStyle   string    `json:"attachmentStyle,omitempty"`
	Zodiac            string    `json:"zodiac,omitempty"`
	ImageURL          string    `json:"imageUrl"`
	IsApproved        bool      `json:"isApproved"`
	FollowerCount     int64     `json:"followerCount"`
	CommunicatorCount int64     `json:"communicatorCount"`
	IsFollowing       bool      `json:"isFollowing"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CharacterQueryDTO 列表查询
type CharacterQueryDTO struct {
	PageDTO
	CreatorID uint64 `form:"creator_id"`
}

// SearchCharacterDTO 搜索
type SearchCharacterDTO struct {
	PageDTO
	Query string `form:"q" validate:"required,min=1,max=100"`
}

// FollowResultDTO 关注切换结果
type FollowResultDTO struct {
	Following     bool  `json:"following"`
	FollowerCount int64 `json:"followerCount"`
}
