package handler

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/response"
	"Sodium/internal/service"
	"context"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

type CommunicateHandler struct {
	communicateSvc service.CommunicateService
}

func NewCommunicateHandler(communicateSvc service.CommunicateService) *CommunicateHandler {
	return &CommunicateHandler{
		communicateSvc: communicateSvc,
	}
}

// Communicate 先返回回复, 再异步写入记忆
func (s *CommunicateHandler) Communicate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CommunicateDTO
	if !bindJSON(c, &req) {
		return
	}

	result, pending, err := s.communicateSvc.Communicate(c.Request.Context(), viewerOf(c).UserID, id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)

	if pending == nil {
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := s.communicateSvc.PersistExchange(ctx, pending); err != nil {
			log.ErrorContext(ctx, "persist exchange error", "character_id", id, "err", err)
		}
	}()
}
