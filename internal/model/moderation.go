package model

import (
	"time"
)

// UserReport 用户被举报的累计记录
type UserReport struct {
	ReportedUserID uint64 `gorm:"primaryKey"`
	ReportCount    int64  `gorm:"not null;default:0"`
	LastReason     string `gorm:"type:varchar(500)"`
	UpdatedAt      time.Time
}

func (UserReport) TableName() string {
	return "user_reports"
}

type Suspend struct {
	ID                uint64    `gorm:"primaryKey" json:"id"`
	UserID            uint64    `gorm:"not null;uniqueIndex:idx_suspend_user_id" json:"userId"`
	SuspensionCount   int       `gorm:"not null;default:0" json:"suspensionCount"`
	SuspensionEndDate time.Time `json:"suspensionEndDate"`
	Reason            string    `gorm:"type:varchar(500)" json:"reason"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (Suspend) TableName() string {
	return "suspends"
}
