package middleware

import (
	"Sodium/internal/pkg/consts"
	"Sodium/internal/pkg/response"
	"Sodium/internal/pkg/security"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// TokenRevocation 登出后的 token 黑名单
type TokenRevocation interface {
	IsTokenRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware(tokens *security.TokenManager, revocation TokenRevocation) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.Fail(c, response.Unauthorized, "missing token")
			return
		}

		claims, err := tokens.ValidateToken(tokenString, security.TokenTypeAccess)
		if err != nil {
			response.Fail(c, response.Unauthorized, "invalid or expired token")
			return
		}

		revoked, err := revocation.IsTokenRevoked(c.Request.Context(), tokenString)
		if err != nil {
			log.ErrorContext(c.Request.Context(), "check token blacklist error", "err", err)
			response.Fail(c, response.InternalServerError, "Internal server error")
			return
		}
		if revoked {
			response.Fail(c, response.Unauthorized, "invalid or expired token")
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// AuthOptionalMiddleware 可选鉴权：解析成功注入 UID，失败或缺失则 UID 为 0
func AuthOptionalMiddleware(tokens *security.TokenManager, revocation TokenRevocation) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxUserID, uint64(0))

		tokenString := extractToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := tokens.ValidateToken(tokenString, security.TokenTypeAccess)
		if err == nil {
			revoked, rErr := revocation.IsTokenRevoked(c.Request.Context(), tokenString)
			if rErr == nil && !revoked {
				setIdentity(c, claims)
			}
		}
		c.Next()
	}
}

// extractToken Cookie 优先, 其次 Authorization 头
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(consts.AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func setIdentity(c *gin.Context, claims *security.UserClaims) {
	c.Set(CtxUserID, claims.UserID)
	c.Set(CtxRole, claims.Role)
	newCtx := context.WithValue(c.Request.Context(), CtxUserID, claims.UserID)
	c.Request = c.Request.WithContext(newCtx)
}
