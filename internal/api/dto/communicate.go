package dto

import "time"

// CommunicateDTO 与角色对话
type CommunicateDTO struct {
	Message       string `json:"message" validate:"required,min=1,max=2000"`
	ResponseStyle string `json:"responseStyle" validate:"omitempty,oneof=roleplay professional"`
	Model         string `json:"model" validate:"omitempty,max=40"`
}

// CommunicateResultDTO 对话结果
type CommunicateResultDTO struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// MessageDTO 聊天记录
type MessageDTO struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
