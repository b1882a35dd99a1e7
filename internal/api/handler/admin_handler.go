package handler

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/response"
	"Sodium/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler 仅 admin 角色可访问
type AdminHandler struct {
	characterSvc service.CharacterService
	suspendSvc   service.SuspendService
	userSvc      service.UserService
}

func NewAdminHandler(characterSvc service.CharacterService, suspendSvc service.SuspendService, userSvc service.UserService) *AdminHandler {
	return &AdminHandler{
		characterSvc: characterSvc,
		suspendSvc:   suspendSvc,
		userSvc:      userSvc,
	}
}

func (s *AdminHandler) ApproveCharacter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	character, err := s.characterSvc.ApproveCharacter(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, character)
}

func (s *AdminHandler) SuspendUser(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	var req dto.SuspendDTO
	if !bindJSON(c, &req) {
		return
	}
	suspension, err := s.suspendSvc.AdminSuspend(c.Request.Context(), userID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, suspension)
}

func (s *AdminHandler) GetSuspension(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	suspension, err := s.suspendSvc.GetSuspension(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, suspension)
}

func (s *AdminHandler) SetSubscription(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	var req dto.SubscriptionDTO
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.userSvc.SetSubscription(c.Request.Context(), userID, *req.IsPaid)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}
