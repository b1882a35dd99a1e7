package middleware

import (
	"Sodium/internal/pkg/response"
	"slices"

	"github.com/gin-gonic/gin"
)

// CheckRoles 检查当前用户是否拥有指定角色之一, 需在 AuthMiddleware 之后
func CheckRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(requiredRoles, c.GetString(CtxRole)) {
			response.Fail(c, response.Forbidden, "forbidden")
			return
		}
		c.Next()
	}
}
