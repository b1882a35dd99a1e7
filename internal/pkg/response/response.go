package response

import (
	"Sodium/internal/api/config"
	"Sodium/internal/api/dto"
	"Sodium/internal/service"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	TooManyRequests     = 429
	InternalServerError = 500
)

// Success 成功返回封装
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装, HTTP 状态码与业务码一致
func Fail(c *gin.Context, businessCode int, message string) {
	c.AbortWithStatusJSON(businessCode, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, validationMessage(ve))
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "invalid json body")
		return
	}

	code, sentinel, ok := service.CodeOf(err)
	if ok && code != InternalServerError {
		Fail(c, code, sentinel.Error())
		return
	}

	log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "err", err)
	message := "Internal server error"
	if config.Cfg == nil || !config.Cfg.Server.IsProduction() {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	Fail(c, InternalServerError, message)
}

func validationMessage(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return "invalid parameters"
	}
	fe := ve[0]
	return fmt.Sprintf("invalid parameter %s: %s", fe.Field(), fe.Tag())
}
