package handlers

import (
	"net/http"

	"learnhub/ai"
	"learnhub/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService       *services.ChatService
	enrollmentService *services.EnrollmentService
}

func NewChatHandler(chatService *services.ChatService, enrollmentService *services.EnrollmentService) *ChatHandler {
	return &ChatHandler{
		chatService:       chatService,
		enrollmentService: enrollmentService,
	}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req services.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), userID.(uint), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ChatHandler) GetMySessions(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	sessions, err := h.chatService.GetSessionsByUser(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

type generateQuizRequest struct {
	Topic         string `json:"topic" binding:"required"`
	Difficulty    string `json:"difficulty" binding:"required,oneof=beginner intermediate advanced"`
	QuestionCount int    `json:"question_count"`
}

func (h *ChatHandler) GenerateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.QuestionCount <= 0 {
		req.QuestionCount = 5
	}

	quiz, err := h.chatService.GenerateQuiz(c.Request.Context(), req.Topic, req.Difficulty, req.QuestionCount)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, quiz)
}

type analyzeProgressRequest struct {
	CourseID   uint `json:"course_id" binding:"required"`
	HoursSpent int  `json:"hours_spent"`
}

func (h *ChatHandler) AnalyzeProgress(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req analyzeProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	completed, total, scores, err := h.enrollmentService.GetProgressStats(userID.(uint), req.CourseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	analysis := h.chatService.AnalyzeProgress(c.Request.Context(), ai.ProgressStats{
		CompletedLessons: int(completed),
		TotalLessons:     int(total),
		QuizScores:       scores,
		HoursSpent:       req.HoursSpent,
	})

	c.JSON(http.StatusOK, analysis)
}
