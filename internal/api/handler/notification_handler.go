package handler

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/response"
	"Sodium/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationSvc service.NotificationService
}

func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationSvc: notificationSvc,
	}
}

func (s *NotificationHandler) List(c *gin.Context) {
	var page dto.PageDTO
	if !bindQuery(c, &page) {
		return
	}
	list, err := s.notificationSvc.List(c.Request.Context(), viewerOf(c).UserID, &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := s.notificationSvc.UnreadCount(c.Request.Context(), viewerOf(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.UnreadCountDTO{Count: count})
}

func (s *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := s.notificationSvc.MarkAllRead(c.Request.Context(), viewerOf(c).UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *NotificationHandler) MarkRead(c *gin.Context) {
	if err := s.notificationSvc.MarkRead(c.Request.Context(), viewerOf(c).UserID, c.Param("notification_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
