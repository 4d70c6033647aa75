package routes

import (
	"log"
	"net/http"

	"learnhub/handlers"
	"learnhub/middleware"
	"learnhub/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	courseHandler *handlers.CourseHandler,
	quizHandler *handlers.QuizHandler,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	leadHandler *handlers.LeadHandler,
	adminHandler *handlers.AdminHandler,
	hub *services.Hub,
	sessionService *services.SessionService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Lead capture (public, used by marketing pages)
		api.POST("/leads", leadHandler.CreateLead)

		// Course catalog is browsable without an account
		api.GET("/courses", courseHandler.GetCourses)
		api.GET("/courses/:id", courseHandler.GetCourseByID)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Lessons
			protected.GET("/courses/:id/lessons", courseHandler.GetLessonsByCourse)
			protected.GET("/lessons/:id", courseHandler.GetLessonByID)
			protected.POST("/lessons/:id/progress", courseHandler.UpdateLessonProgress)

			// Enrollment
			protected.GET("/enrollments", courseHandler.GetMyEnrollments)
			protected.POST("/enrollments", courseHandler.Enroll)

			// Quizzes
			protected.GET("/lessons/:id/quizzes", quizHandler.GetQuizzesByLesson)
			protected.POST("/quizzes/:id/attempts", quizHandler.CreateAttempt)
			protected.GET("/attempts", quizHandler.GetMyAttempts)

			// Quiz sessions
			sessions := protected.Group("/sessions")
			{
				sessions.POST("", sessionHandler.StartSession)
				sessions.GET("/:id", sessionHandler.GetSession)
				sessions.POST("/:id/answer", sessionHandler.SelectAnswer)
				sessions.POST("/:id/navigate", sessionHandler.Navigate)
				sessions.POST("/:id/submit", sessionHandler.Submit)
				sessions.DELETE("/:id", sessionHandler.Abandon)
			}

			// AI tutor
			aiGroup := protected.Group("/ai")
			{
				aiGroup.POST("/chat", chatHandler.Chat)
				aiGroup.GET("/chat/sessions", chatHandler.GetMySessions)
				aiGroup.POST("/analyze-progress", chatHandler.AnalyzeProgress)
			}

			// Teacher routes
			teacher := protected.Group("/")
			teacher.Use(middleware.RequireTeacher())
			{
				teacher.POST("/courses", courseHandler.CreateCourse)
				teacher.POST("/courses/:id/lessons", courseHandler.CreateLesson)
				teacher.POST("/quizzes", quizHandler.CreateQuiz)
				teacher.POST("/ai/generate-quiz", chatHandler.GenerateQuiz)
			}

			// Admin routes
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/stats", adminHandler.GetStats)
				admin.GET("/leads", leadHandler.GetLeads)
				admin.PATCH("/leads/:id", leadHandler.UpdateLeadStatus)
			}
		}
	}

	// WebSocket endpoint for live session updates (countdown ticks and the
	// completion event). Browsers cannot set an Authorization header on a
	// WebSocket handshake, so the token travels as a query parameter.
	router.GET("/ws/sessions/:id", func(c *gin.Context) {
		sessionID := c.Param("id")

		userID, _, err := middleware.ParseToken(c.Query("token"), jwtSecret)
		if err != nil {
			log.Printf("WebSocket auth failed for session %s: %v", sessionID, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if err := sessionService.ValidateOwnership(sessionID, userID); err != nil {
			log.Printf("WebSocket ownership check failed for session %s, user %d: %v", sessionID, userID, err)
			c.JSON(http.StatusForbidden, gin.H{"error": "Session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for session %s: %v", sessionID, err)
			return
		}

		log.Printf("WebSocket connection established for session %s, user %d", sessionID, userID)
		hub.RegisterClient(conn, sessionID, userID)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
