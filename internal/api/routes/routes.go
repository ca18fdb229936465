package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/api/handlers"
	"github.com/yoockh/yoohealth/internal/api/middleware"
	"github.com/yoockh/yoohealth/internal/metrics"
)

type Deps struct {
	Auth    *handlers.AuthHandler
	Chat    *handlers.ChatHandler
	Topic   *handlers.TopicHandler
	Voice   *handlers.VoiceHandler
	VoiceWS *handlers.VoiceWSHandler

	Authenticator middleware.Authenticator
	// Metrics is served on /metrics when non-nil.
	Metrics *metrics.Metrics
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	jwt := middleware.JWTAuth(d.Authenticator)

	// Public
	r.POST("/auth/signup", d.Auth.Signup)
	r.POST("/auth/login", d.Auth.Login)
	r.POST("/auth/reset-password", d.Auth.RequestReset)
	r.POST("/auth/reset-password/confirm", d.Auth.ConfirmReset)
	r.GET("/topics", d.Topic.List)

	// Anonymous chat is answered but not logged
	r.POST("/chat/messages", middleware.OptionalJWT(d.Authenticator), d.Chat.Send)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(jwt)

	auth.POST("/auth/logout", d.Auth.Logout)
	auth.GET("/auth/me", d.Auth.Me)
	auth.PUT("/auth/profile", d.Auth.UpdateProfile)
	auth.PUT("/auth/profile/avatar", d.Auth.UploadAvatar)

	auth.POST("/topics", middleware.RequireAdmin(), d.Topic.Upsert)

	auth.GET("/chat/messages", d.Chat.History)

	auth.POST("/voice/transcribe", d.Voice.Transcribe)
	auth.GET("/voice/transcripts", d.Voice.ListTranscripts)

	// WebSocket
	auth.GET("/ws/voice", d.VoiceWS.VoiceWS)
}
