package model

import (
	"time"
)

type Character struct {
	ID                uint64 `gorm:"primaryKey"`
	CreatorID         uint64 `gorm:"not null;index:idx_creator_id"`
	Name              string `gorm:"type:varchar(60);not null;index:idx_name"`
	Description       string `gorm:"type:varchar(1000)"`
	Gender            string `gorm:"type:varchar(20);not null"`
	Personality       string `gorm:"type:varchar(2000);not null"`
	Opening           string `gorm:"type:varchar(1000);not null"`
	Model             string `gorm:"type:varchar(40);not null"`
	MBTI              string `gorm:"column:mbti;type:varchar(4)"`
	Enneagram         string `gorm:"type:varchar(10)"`
	AttachmentStyle   string `gorm:"type:varchar(30)"`
	Zodiac            string `gorm:"type:varchar(20)"`
	ImageURL          string `gorm:"type:varchar(512)"`
	ImagePublicID     string `gorm:"type:varchar(255)"`
	IsApproved        bool   `gorm:"not null;default:false;index:idx_approved"`
	FollowerCount     int64  `gorm:"not null;default:0"`
	CommunicatorCount int64  `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Character) TableName() string {
	return "characters"
}

// CharacterFollower 既是角色的粉丝集合，也是用户的关注集合
type CharacterFollower struct {
	UserID      uint64 `gorm:"primaryKey"`
	CharacterID uint64 `gorm:"primaryKey;index:idx_follower_character_id"`
	CreatedAt   time.Time
}

func (CharacterFollower) TableName() string {
	return "character_followers"
}

// CharacterCommunicator 既是角色的对话者集合，也是用户的对话角色集合
type CharacterCommunicator struct {
	UserID      uint64 `gorm:"primaryKey"`
	CharacterID uint64 `gorm:"primaryKey;index:idx_communicator_character_id"`
	CreatedAt   time.Time
}

func (CharacterCommunicator) TableName() string {
	return "character_communicators"
}
