package es

import (
	"Sodium/internal/model"
	"time"
)

// CharacterES 对应角色索引的文档结构
type CharacterES struct {
	ID            uint64    `json:"id"`
	CreatorID     uint64    `json:"creator_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Personality   string    `json:"personality"`
	Gender        string    `json:"gender"`
	Model         string    `json:"model"`
	ImageURL      string    `json:"image_url"`
	IsApproved    bool      `json:"is_approved"`
	FollowerCount int64     `json:"follower_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewCharacterES(c *model.Character) *CharacterES {
	return &CharacterES{
		ID:            c.ID,
		CreatorID:     c.CreatorID,
		Name:          c.Name,
		Description:   c.Description,
		Personality:   c.Personality,
		Gender:        c.Gender,
		Model:         c.Model,
		ImageURL:      c.ImageURL,
		IsApproved:    c.IsApproved,
		FollowerCount: c.FollowerCount,
		UpdatedAt:     c.UpdatedAt,
	}
}
