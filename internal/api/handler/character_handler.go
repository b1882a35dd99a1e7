package handler

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/response"
	"Sodium/internal/pkg/util"
	"Sodium/internal/service"

	"github.com/gin-gonic/gin"
)

type CharacterHandler struct {
	characterSvc service.CharacterService
	followSvc    service.FollowService
	memorySvc    service.MemoryService
}

func NewCharacterHandler(characterSvc service.CharacterService, followSvc service.FollowService, memorySvc service.MemoryService) *CharacterHandler {
	return &CharacterHandler{
		characterSvc: characterSvc,
		followSvc:    followSvc,
		memorySvc:    memorySvc,
	}
}

func (s *CharacterHandler) ListCharacters(c *gin.Context) {
	var query dto.CharacterQueryDTO
	if !bindQuery(c, &query) {
		return
	}
	list, err := s.characterSvc.ListCharacters(c.Request.Context(), viewerOf(c), &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *CharacterHandler) SearchCharacters(c *gin.Context) {
	var query dto.SearchCharacterDTO
	if !bindQuery(c, &query) {
		return
	}
	list, err := s.characterSvc.SearchCharacters(c.Request.Context(), &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *CharacterHandler) GetCharacter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	character, err := s.characterSvc.GetCharacter(c.Request.Context(), viewerOf(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, character)
}

// CreateCharacter multipart 表单, 图片字段为 image
func (s *CharacterHandler) CreateCharacter(c *gin.Context) {
	var req dto.CreateCharacterDTO
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	image, cleanup, err := saveImage(c, "image")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	character, err := s.characterSvc.CreateCharacter(c.Request.Context(), viewerOf(c).UserID, &req, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, character)
}

func (s *CharacterHandler) UpdateCharacter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateCharacterDTO
	if !bindJSON(c, &req) {
		return
	}
	character, err := s.characterSvc.UpdateCharacter(c.Request.Context(), viewerOf(c), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, character)
}

func (s *CharacterHandler) UpdateImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	image, cleanup, err := saveImage(c, "image")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer cleanup()

	character, err := s.characterSvc.UpdateImage(c.Request.Context(), viewerOf(c), id, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, character)
}

func (s *CharacterHandler) DeleteCharacter(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := s.characterSvc.DeleteCharacter(c.Request.Context(), viewerOf(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *CharacterHandler) ToggleFollow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	result, err := s.followSvc.ToggleFollow(c.Request.Context(), viewerOf(c).UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetMemory 当前用户与角色的聊天记录
func (s *CharacterHandler) GetMemory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	history, err := s.memorySvc.GetHistory(c.Request.Context(), viewerOf(c).UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

func (s *CharacterHandler) ResetMemory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := s.memorySvc.ResetMemory(c.Request.Context(), viewerOf(c).UserID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
