package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"

	MeritMin = -100
	MeritMax = 100
)

type User struct {
	ID             uint64 `gorm:"primaryKey"`
	Username       string `gorm:"type:varchar(30);not null;uniqueIndex:idx_username"`
	Email          string `gorm:"type:varchar(255);not null;uniqueIndex:idx_email"`
	Password       string `gorm:"type:varchar(255);not null"`
	Fullname       string `gorm:"type:varchar(60)"`
	AvatarURL      string `gorm:"type:varchar(512)"`
	AvatarPublicID string `gorm:"type:varchar(255)"`
	Role           string `gorm:"type:varchar(10);not null;default:user"`
	Status         string `gorm:"type:varchar(10);not null;default:active"`
	IsVerified     bool   `gorm:"not null;default:false"`
	IsPaid         bool   `gorm:"not null;default:false"`
	Merit          int    `gorm:"not null;default:0"`
	TotalFollowers int64  `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
