package handler

import (
	"Sodium/internal/api/config"
	"Sodium/internal/api/dto"
	"Sodium/internal/pkg/consts"
	"Sodium/internal/pkg/response"
	"Sodium/internal/pkg/security"
	"Sodium/internal/service"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userSvc service.UserService
	tokens  *security.TokenManager
}

func NewAuthHandler(userSvc service.UserService, tokens *security.TokenManager) *AuthHandler {
	return &AuthHandler{
		userSvc: userSvc,
		tokens:  tokens,
	}
}

func (s *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterDTO
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.userSvc.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

func (s *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyOTPDTO
	if !bindJSON(c, &req) {
		return
	}
	if err := s.userSvc.VerifyEmail(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AuthHandler) ResendOTP(c *gin.Context) {
	var req dto.ResendOTPDTO
	if !bindJSON(c, &req) {
		return
	}
	if err := s.userSvc.ResendOTP(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginDTO
	if !bindJSON(c, &req) {
		return
	}
	pair, err := s.userSvc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.setTokenCookies(c, pair)
	response.Success(c, gin.H{
		"user":        pair.User,
		"accessToken": pair.AccessToken,
	})
}

func (s *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(consts.RefreshTokenCookie)
	if refreshToken == "" {
		refreshToken = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if refreshToken == "" {
		response.Error(c, service.ErrTokenInvalid)
		return
	}
	pair, err := s.userSvc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	s.setTokenCookies(c, pair)
	response.Success(c, gin.H{
		"user":        pair.User,
		"accessToken": pair.AccessToken,
	})
}

func (s *AuthHandler) Logout(c *gin.Context) {
	accessToken, _ := c.Cookie(consts.AccessTokenCookie)
	if accessToken == "" {
		accessToken = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	refreshToken, _ := c.Cookie(consts.RefreshTokenCookie)
	if err := s.userSvc.Logout(c.Request.Context(), accessToken, refreshToken); err != nil {
		response.Error(c, err)
		return
	}
	setCookie(c, consts.AccessTokenCookie, "", -1)
	setCookie(c, consts.RefreshTokenCookie, "", -1)
	response.Success(c, nil)
}

func (s *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordDTO
	if !bindJSON(c, &req) {
		return
	}
	if err := s.userSvc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordDTO
	if !bindJSON(c, &req) {
		return
	}
	if err := s.userSvc.ResetPassword(c.Request.Context(), &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AuthHandler) setTokenCookies(c *gin.Context, pair *dto.TokenPair) {
	setCookie(c, consts.AccessTokenCookie, pair.AccessToken, s.tokens.AccessTTL())
	setCookie(c, consts.RefreshTokenCookie, pair.RefreshToken, s.tokens.RefreshTTL())
}

// setCookie httpOnly Cookie, ttl < 0 表示删除
func setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	domain, secure := "", false
	if config.Cfg != nil {
		domain, secure = config.Cfg.Server.CookieDomain, config.Cfg.Server.CookieSecure
	}
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", domain, secure, true)
}
