package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/webhooks"
)

type HandlerManager struct {
	serviceManager  services.ServiceManager
	authHandler     *AuthHandler
	faceHandler     *FaceHandler
	learningHandler *LearningHandler
	noteHandler     *NoteHandler
	webhookHandler  *WebhookHandler
	authMiddleware  *SessionAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	verifier *webhooks.Verifier,
	logger utils.Logger,
	secureCookie bool,
) *HandlerManager {
	authMiddleware := NewSessionAuthMiddleware(serviceManager.Auth(), secureCookie)

	return &HandlerManager{
		serviceManager:  serviceManager,
		authHandler:     NewAuthHandler(serviceManager.Auth(), serviceManager.User(), authMiddleware, logger),
		faceHandler:     NewFaceHandler(serviceManager.Face(), logger),
		learningHandler: NewLearningHandler(serviceManager.Learning(), logger),
		noteHandler:     NewNoteHandler(serviceManager.Note(), logger),
		webhookHandler:  NewWebhookHandler(verifier, serviceManager.User(), logger),
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/webhooks/identity", hm.webhookHandler.IdentityEvent)
	v1.POST("/webhooks/casdoor", hm.webhookHandler.CasdoorEvent)

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/sign-up", hm.authHandler.SignUp)
		authRoutes.POST("/sign-in", hm.authHandler.SignIn)
		authRoutes.POST("/face-login", hm.authHandler.FaceLogin)
	}

	// Session routes
	session := v1.Group("")
	session.Use(hm.authMiddleware.AuthMiddleware())
	{
		me := session.Group("/auth")
		{
			me.POST("/logout", hm.authHandler.Logout)
			me.GET("/me", hm.authHandler.Me)
			me.POST("/sync", hm.authHandler.Sync)
			me.PATCH("/password", hm.authMiddleware.RequireAuthMethod(auth.MethodPassword), hm.authHandler.ChangePassword)
		}

		face := session.Group("/face")
		{
			face.GET("", hm.faceHandler.Status)
			face.POST("/verify", hm.faceHandler.Verify)

			// Changing the enrolled face needs a password session
			face.PUT("", hm.authMiddleware.RequireAuthMethod(auth.MethodPassword), hm.faceHandler.Enroll)
			face.DELETE("", hm.authMiddleware.RequireAuthMethod(auth.MethodPassword), hm.faceHandler.Remove)
		}

		learning := session.Group("/learning")
		{
			learning.POST("/plans/generate", hm.learningHandler.GeneratePlan)
			learning.POST("/plans", hm.learningHandler.SavePlan)
			learning.POST("/quizzes/generate", hm.learningHandler.GenerateQuiz)
			learning.POST("/quizzes/explain", hm.learningHandler.ExplainAnswer)
			learning.POST("/quizzes/results", hm.learningHandler.SaveQuizResult)
			learning.GET("/history", hm.learningHandler.History)
			learning.GET("/history/export", hm.learningHandler.ExportHistory)
			learning.GET("/stats", hm.learningHandler.Stats)
		}

		notes := session.Group("/notes")
		{
			notes.GET("", hm.noteHandler.ListNotes)
			notes.POST("", hm.noteHandler.CreateNote)
			notes.GET("/:id", hm.noteHandler.GetNote)
			notes.PATCH("/:id", hm.noteHandler.UpdateNote)
			notes.DELETE("/:id", hm.noteHandler.DeleteNote)
			notes.GET("/:id/versions", hm.noteHandler.ListVersions)
			notes.POST("/versions/:version_id/restore", hm.noteHandler.RestoreVersion)
		}
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "study-assistant-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "study-assistant-service",
	})
}
