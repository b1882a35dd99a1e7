package handler

import (
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/response"
	"Sodium/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentSvc service.CommentService
}

func NewCommentHandler(commentSvc service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentSvc: commentSvc,
	}
}

func (s *CommentHandler) ListComments(c *gin.Context) {
	characterID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var page dto.PageDTO
	if !bindQuery(c, &page) {
		return
	}
	list, err := s.commentSvc.ListComments(c.Request.Context(), viewerOf(c), characterID, &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *CommentHandler) ListReplies(c *gin.Context) {
	commentID, ok := paramID(c, "comment_id")
	if !ok {
		return
	}
	list, err := s.commentSvc.ListReplies(c.Request.Context(), viewerOf(c), commentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *CommentHandler) CreateComment(c *gin.Context) {
	characterID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CreateCommentDTO
	if !bindJSON(c, &req) {
		return
	}
	comment, err := s.commentSvc.CreateComment(c.Request.Context(), viewerOf(c).UserID, characterID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, comment)
}

func (s *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, ok := paramID(c, "comment_id")
	if !ok {
		return
	}
	if err := s.commentSvc.DeleteComment(c.Request.Context(), viewerOf(c), commentID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *CommentHandler) ToggleLike(c *gin.Context) {
	commentID, ok := paramID(c, "comment_id")
	if !ok {
		return
	}
	result, err := s.commentSvc.ToggleLike(c.Request.Context(), viewerOf(c).UserID, commentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (s *CommentHandler) ReportComment(c *gin.Context) {
	commentID, ok := paramID(c, "comment_id")
	if !ok {
		return
	}
	if err := s.commentSvc.ReportComment(c.Request.Context(), viewerOf(c).UserID, commentID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
