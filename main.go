package main

import (
	"log"

	"learnhub/ai"
	"learnhub/config"
	"learnhub/events"
	"learnhub/handlers"
	"learnhub/middleware"
	"learnhub/models"
	"learnhub/routes"
	"learnhub/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Quiz{},
		&models.QuizAttempt{},
		&models.ChatSession{},
		&models.Lead{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Event publisher is optional: without a broker the platform still
	// works, events are just not emitted.
	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Printf("AMQP unavailable, events disabled: %v", err)
		} else {
			publisher = amqpPublisher
			defer amqpPublisher.Close()
		}
	}

	aiClient := ai.NewClient(cfg.AIBaseURL, cfg.AIAPIKey, cfg.AIModel)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	courseService := services.NewCourseService(db)
	enrollmentService := services.NewEnrollmentService(db)
	quizService := services.NewQuizService(db)
	attemptService := services.NewAttemptService(db, enrollmentService, publisher)
	chatService := services.NewChatService(db, aiClient)
	leadService := services.NewLeadService(db, publisher)
	adminService := services.NewAdminService(db)

	// Initialize WebSocket hub
	hub := services.NewHub()
	go hub.Run()

	sessionService := services.NewSessionService(redisClient, quizService, attemptService, hub)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	courseHandler := handlers.NewCourseHandler(courseService, enrollmentService)
	quizHandler := handlers.NewQuizHandler(quizService, attemptService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	chatHandler := handlers.NewChatHandler(chatService, enrollmentService)
	leadHandler := handlers.NewLeadHandler(leadService)
	adminHandler := handlers.NewAdminHandler(adminService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router,
		authHandler, courseHandler, quizHandler, sessionHandler,
		chatHandler, leadHandler, adminHandler,
		hub, sessionService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on %s:%s", cfg.BindAddress, cfg.Port)
	if err := router.Run(cfg.BindAddress + ":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
