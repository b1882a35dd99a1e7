package api

import (
	"Sodium/internal/api/middleware"
	"Sodium/internal/model"
	"Sodium/internal/pkg/logger"
	"Sodium/internal/pkg/security"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterDeps 鉴权中间件依赖
type RouterDeps struct {
	Tokens       *security.TokenManager
	Revocation   middleware.TokenRevocation
	AllowOrigins []string
}

func SetupRouter(group *HandlersGroup, deps RouterDeps) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(deps.AllowOrigins))
	logger.SetupGin(r)

	auth := middleware.AuthMiddleware(deps.Tokens, deps.Revocation)
	authOpt := middleware.AuthOptionalMiddleware(deps.Tokens, deps.Revocation)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", group.AuthHandler.Register)
			authGroup.POST("/verify-email", group.AuthHandler.VerifyEmail)
			authGroup.POST("/resend-otp", group.AuthHandler.ResendOTP)
			authGroup.POST("/login", group.AuthHandler.Login)
			authGroup.POST("/refresh", group.AuthHandler.Refresh)
			authGroup.POST("/password/forgot", group.AuthHandler.ForgotPassword)
			authGroup.POST("/password/reset", group.AuthHandler.ResetPassword)
			authGroup.POST("/logout", auth, group.AuthHandler.Logout)
		}

		userGroup := apiGroup.Group("/users")
		{
			userGroup.GET("/:user_id", authOpt, group.UserHandler.GetPublicProfile)

			meGroup := userGroup.Group("")
			meGroup.Use(auth)
			{
				meGroup.GET("/me", group.UserHandler.GetMe)
				meGroup.PUT("/me", group.UserHandler.UpdateProfile)
				meGroup.POST("/me/avatar", group.UserHandler.UploadAvatar)
				meGroup.GET("/me/following", group.UserHandler.GetFollowing)
				meGroup.GET("/me/communications", group.UserHandler.GetCommunications)
				meGroup.POST("/:user_id/report", group.UserHandler.ReportUser)
			}
		}

		notificationGroup := apiGroup.Group("/notifications")
		notificationGroup.Use(auth)
		{
			notificationGroup.GET("", group.NotificationHandler.List)
			notificationGroup.GET("/unread", group.NotificationHandler.UnreadCount)
			notificationGroup.POST("/read", group.NotificationHandler.MarkAllRead)
			notificationGroup.POST("/:notification_id/read", group.NotificationHandler.MarkRead)
		}

		characterGroup := apiGroup.Group("/characters")
		{
			authOptGroup := characterGroup.Group("")
			authOptGroup.Use(authOpt)
			{
				authOptGroup.GET("", group.CharacterHandler.ListCharacters)
				authOptGroup.GET("/search", group.CharacterHandler.SearchCharacters)
				authOptGroup.GET("/:id", group.CharacterHandler.GetCharacter)
				authOptGroup.GET("/:id/comments", group.CommentHandler.ListComments)
				authOptGroup.POST("/:id/communicate", group.CommunicateHandler.Communicate)
			}

			authCharGroup := characterGroup.Group("")
			authCharGroup.Use(auth)
			{
				authCharGroup.POST("", group.CharacterHandler.CreateCharacter)
				authCharGroup.PUT("/:id", group.CharacterHandler.UpdateCharacter)
				authCharGroup.PUT("/:id/image", group.CharacterHandler.UpdateImage)
				authCharGroup.DELETE("/:id", group.CharacterHandler.DeleteCharacter)
				authCharGroup.POST("/:id/follow", group.CharacterHandler.ToggleFollow)
				authCharGroup.GET("/:id/memory", group.CharacterHandler.GetMemory)
				authCharGroup.DELETE("/:id/memory", group.CharacterHandler.ResetMemory)
				authCharGroup.POST("/:id/comments", group.CommentHandler.CreateComment)
			}
		}

		commentGroup := apiGroup.Group("/comments")
		{
			commentGroup.GET("/:comment_id/replies", authOpt, group.CommentHandler.ListReplies)

			authCommentGroup := commentGroup.Group("")
			authCommentGroup.Use(auth)
			{
				authCommentGroup.DELETE("/:comment_id", group.CommentHandler.DeleteComment)
				authCommentGroup.POST("/:comment_id/like", group.CommentHandler.ToggleLike)
				authCommentGroup.POST("/:comment_id/report", group.CommentHandler.ReportComment)
			}
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin")
		adminGroup.Use(auth, middleware.CheckRoles(model.RoleAdmin))
		{
			adminGroup.PUT("/characters/:id/approve", group.AdminHandler.ApproveCharacter)
			adminGroup.POST("/users/:user_id/suspend", group.AdminHandler.SuspendUser)
			adminGroup.GET("/users/:user_id/suspension", group.AdminHandler.GetSuspension)
			adminGroup.PUT("/users/:user_id/subscription", group.AdminHandler.SetSubscription)
		}
	}

	return r
}
