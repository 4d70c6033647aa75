package services

import (
	"context"
	"time"

	"learnhub/ai"
	"learnhub/models"

	"gorm.io/gorm"
)

// ChatService wraps the AI tutor client and persists chat exchanges.
type ChatService struct {
	db     *gorm.DB
	client *ai.Client
}

func NewChatService(db *gorm.DB, client *ai.Client) *ChatService {
	return &ChatService{db: db, client: client}
}

type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID uint   `json:"session_id"`
	Subject   string `json:"subject"`
	Grade     string `json:"grade"`
}

type ChatResponse struct {
	Response    string   `json:"response"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
	SessionID   uint     `json:"session_id"`
}

// Chat answers a student question, threading prior messages of the session
// into the prompt and appending both sides of the exchange to the stored
// session. Provider failures degrade inside the client, so a reply always
// comes back.
func (s *ChatService) Chat(ctx context.Context, userID uint, req *ChatRequest) (*ChatResponse, error) {
	var chatSession models.ChatSession
	if req.SessionID != 0 {
		if err := s.db.Where("id = ? AND user_id = ?", req.SessionID, userID).
			First(&chatSession).Error; err != nil {
			chatSession = models.ChatSession{UserID: userID}
		}
	} else {
		chatSession = models.ChatSession{UserID: userID}
	}

	reply := s.client.TutorReply(ctx, req.Message, ai.TutorContext{
		Subject:          req.Subject,
		Grade:            req.Grade,
		PreviousMessages: chatSession.Messages,
	})

	now := time.Now()
	chatSession.Messages = append(chatSession.Messages,
		models.ChatMessage{Role: "user", Content: req.Message, Timestamp: now},
		models.ChatMessage{Role: "assistant", Content: reply.Response, Timestamp: now},
	)

	if err := s.db.Save(&chatSession).Error; err != nil {
		return nil, err
	}

	return &ChatResponse{
		Response:    reply.Response,
		Confidence:  reply.Confidence,
		Suggestions: reply.Suggestions,
		SessionID:   chatSession.ID,
	}, nil
}

func (s *ChatService) GetSessionsByUser(userID uint) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

// GenerateQuiz produces quiz questions via the AI client.
func (s *ChatService) GenerateQuiz(ctx context.Context, topic, difficulty string, questionCount int) (*ai.GeneratedQuiz, error) {
	return s.client.GenerateQuiz(ctx, topic, difficulty, questionCount)
}

// AnalyzeProgress summarizes a student's progress on a course.
func (s *ChatService) AnalyzeProgress(ctx context.Context, stats ai.ProgressStats) *ai.ProgressAnalysis {
	return s.client.AnalyzeProgress(ctx, stats)
}
