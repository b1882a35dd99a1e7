package handler

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/response"
	"Sodium/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc      service.UserService
	reportSvc    service.ReportService
	followSvc    service.FollowService
	characterSvc service.CharacterService
}

func NewUserHandler(userSvc service.UserService, reportSvc service.ReportService, followSvc service.FollowService, characterSvc service.CharacterService) *UserHandler {
	return &UserHandler{
		userSvc:      userSvc,
		reportSvc:    reportSvc,
		followSvc:    followSvc,
		characterSvc: characterSvc,
	}
}

func (s *UserHandler) GetMe(c *gin.Context) {
	user, err := s.userSvc.GetMe(c.Request.Context(), viewerOf(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

func (s *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileDTO
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.userSvc.UpdateProfile(c.Request.Context(), viewerOf(c).UserID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

func (s *UserHandler) UploadAvatar(c *gin.Context) {
	image, cleanup, err := saveImage(c, "avatar")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	user, err := s.userSvc.UpdateAvatar(c.Request.Context(), viewerOf(c).UserID, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

func (s *UserHandler) GetPublicProfile(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	profile, err := s.userSvc.GetPublicProfile(c.Request.Context(), viewerOf(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}

func (s *UserHandler) ReportUser(c *gin.Context) {
	targetID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	var req dto.ReportDTO
	if !bindJSON(c, &req) {
		return
	}
	if err := s.reportSvc.ReportUser(c.Request.Context(), viewerOf(c).UserID, targetID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetFollowing 当前用户关注的角色
func (s *UserHandler) GetFollowing(c *gin.Context) {
	list, err := s.followSvc.GetFollowing(c.Request.Context(), viewerOf(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// GetCommunications 当前用户对话过的角色
func (s *UserHandler) GetCommunications(c *gin.Context) {
	list, err := s.characterSvc.ListCommunications(c.Request.Context(), viewerOf(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
