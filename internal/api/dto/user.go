package dto

import "time"

// UserDTO 用户自己可见的信息
type UserDTO struct {
	ID             uint64    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Fullname       string    `json:"fullname"`
	AvatarURL      string    `json:"avatarUrl"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	IsVerified     bool      `json:"isVerified"`
	IsPaid         bool      `json:"isPaid"`
	Merit          int       `json:"merit"`
	TotalFollowers int64     `json:"totalFollowers"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PublicUserDTO 公开主页
type PublicUserDTO struct {
	ID             uint64          `json:"id"`
	Username       string          `json:"username"`
	Fullname       string          `json:"fullname"`
	AvatarURL      string          `json:"avatarUrl"`
	Merit          int             `json:"merit"`
	TotalFollowers int64           `json:"totalFollowers"`
	Creations      []*CharacterDTO `json:"creations"`
}

// UpdateProfileDTO 修改资料
type UpdateProfileDTO struct {
	Fullname *string `json:"fullname" validate:"omitempty,max=60"`
	Username *string `json:"username" validate:"omitempty,min=3,max=30,alphanum"`
}

// ReportDTO 举报用户
type ReportDTO struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// SuspendDTO 管理员封禁
type SuspendDTO struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// SubscriptionDTO 管理员修改付费状态
type SubscriptionDTO struct {
	IsPaid *bool `json:"isPaid" validate:"required"`
}

// SuspensionDTO 封禁记录
type SuspensionDTO struct {
	UserID            uint64    `json:"userId"`
	Status            string    `json:"status"`
	SuspensionCount   int       `json:"suspensionCount"`
	SuspensionEndDate time.Time `json:"suspensionEndDate"`
	Reason            string    `json:"reason"`
}
