package api

import "Sodium/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	CharacterHandler    *handler.CharacterHandler
	CommunicateHandler  *handler.CommunicateHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	AdminHandler        *handler.AdminHandler
}
