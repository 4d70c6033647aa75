package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"learnhub/models"
)

const requestTimeout = 60 * time.Second

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponseChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatResponseChoice   `json:"choices"`
	ID      string                 `json:"id,omitempty"`
	Usage   map[string]interface{} `json:"usage,omitempty"`
}

// complete sends one completion request and returns the assistant content.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	reqJSON, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("AI request failed after %v: %v", time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var completion chatResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in AI response")
	}

	log.Printf("AI request completed in %v, content length %d", time.Since(start), len(completion.Choices[0].Message.Content))
	return completion.Choices[0].Message.Content, nil
}

// extractJSON pulls the JSON document out of a completion, tolerating
// markdown code fences around it.
func extractJSON(content string) []byte {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}
	// Fall back to the outermost braces if the model added prose around it.
	if !strings.HasPrefix(content, "{") {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start >= 0 && end > start {
			content = content[start : end+1]
		}
	}
	return []byte(content)
}

// TutorContext carries the student's situation into the tutor prompt.
type TutorContext struct {
	Subject          string               `json:"subject,omitempty"`
	Grade            string               `json:"grade,omitempty"`
	PreviousMessages []models.ChatMessage `json:"previous_messages,omitempty"`
}

type TutorResponse struct {
	Response    string   `json:"response"`
	Confidence  float64  `json:"confidence"`
	Subject     string   `json:"subject,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// TutorReply answers a student's question. A provider outage degrades to a
// canned low-confidence reply instead of an error, so chat never hard-fails
// on the student.
func (c *Client) TutorReply(ctx context.Context, message string, tctx TutorContext) *TutorResponse {
	history := "None"
	if n := len(tctx.PreviousMessages); n > 0 {
		recent := tctx.PreviousMessages
		if n > 3 {
			recent = recent[n-3:]
		}
		var lines []string
		for _, m := range recent {
			lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
		}
		history = strings.Join(lines, "\n")
	}

	subject := tctx.Subject
	if subject == "" {
		subject = "General"
	}
	grade := tctx.Grade
	if grade == "" {
		grade = "High School"
	}

	system := fmt.Sprintf(`You are an AI educational assistant for an online learning platform.
You help students with homework, explain complex topics, and provide study guidance.

Context:
- Subject: %s
- Grade level: %s
- Previous conversation: %s

Guidelines:
- Provide clear, educational explanations
- Ask follow-up questions to ensure understanding
- Suggest practice problems or study methods
- Be encouraging and supportive
- If unsure about a topic, acknowledge limitations

Respond with JSON only, using this structure:
{"response": "...", "confidence": 0.0-1.0, "subject": "...", "difficulty": "...", "suggestions": ["..."]}`,
		subject, grade, history)

	content, err := c.complete(ctx, system, message)
	if err != nil {
		log.Printf("Tutor reply failed: %v", err)
		return fallbackTutorResponse()
	}

	var reply TutorResponse
	if err := json.Unmarshal(extractJSON(content), &reply); err != nil || reply.Response == "" {
		log.Printf("Tutor reply was not valid JSON, returning raw content")
		return &TutorResponse{Response: strings.TrimSpace(content), Confidence: 0.5}
	}
	return &reply
}

func fallbackTutorResponse() *TutorResponse {
	return &TutorResponse{
		Response:   "I'm having trouble processing your request right now. Please try again or contact support if the issue persists.",
		Confidence: 0.1,
		Suggestions: []string{
			"Try rephrasing your question",
			"Check your internet connection",
			"Contact support",
		},
	}
}

type GeneratedQuiz struct {
	Questions    models.QuestionList `json:"questions"`
	PassingScore int                 `json:"passing_score"`
}

// GenerateQuiz asks the model for multiple choice questions on a topic. The
// result passes through the same boundary validation as authored quizzes.
func (c *Client) GenerateQuiz(ctx context.Context, topic, difficulty string, questionCount int) (*GeneratedQuiz, error) {
	if questionCount <= 0 {
		questionCount = 5
	}

	prompt := fmt.Sprintf(`Create %d multiple choice questions about %s at %s level.
Each question should have 4 options with only one correct answer.
Include explanations for correct answers.

Respond with JSON only, using this structure:
{
  "questions": [
    {"id": "q1", "prompt": "Question text", "options": ["A", "B", "C", "D"], "correct": 0, "explanation": "Why this answer is correct"}
  ],
  "passing_score": 70
}`, questionCount, topic, difficulty)

	content, err := c.complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	var quiz GeneratedQuiz
	if err := json.Unmarshal(extractJSON(content), &quiz); err != nil {
		return nil, fmt.Errorf("failed to parse generated quiz: %w", err)
	}

	// Models sometimes omit ids; assign positional ones before validating.
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	if err := quiz.Questions.Validate(); err != nil {
		return nil, fmt.Errorf("generated quiz failed validation: %w", err)
	}
	if quiz.PassingScore <= 0 || quiz.PassingScore > 100 {
		quiz.PassingScore = 70
	}

	return &quiz, nil
}

type ProgressStats struct {
	CompletedLessons int   `json:"completed_lessons"`
	TotalLessons     int   `json:"total_lessons"`
	QuizScores       []int `json:"quiz_scores"`
	HoursSpent       int   `json:"hours_spent"`
}

type ProgressAnalysis struct {
	ProgressAnalysis string   `json:"progress_analysis"`
	Recommendations  []string `json:"recommendations"`
	PredictedScore   int      `json:"predicted_score"`
}

// AnalyzeProgress summarizes a student's trajectory and predicts a final
// exam score. Falls back to generic guidance when the provider is down.
func (c *Client) AnalyzeProgress(ctx context.Context, stats ProgressStats) *ProgressAnalysis {
	scores := make([]string, len(stats.QuizScores))
	for i, s := range stats.QuizScores {
		scores[i] = fmt.Sprintf("%d", s)
	}

	prompt := fmt.Sprintf(`Analyze a student's learning progress and provide insights:

Progress Data:
- Completed lessons: %d/%d
- Quiz scores: %s
- Time spent studying: %d hours

Respond with JSON only, using this structure:
{"progress_analysis": "...", "recommendations": ["..."], "predicted_score": 0-100}`,
		stats.CompletedLessons, stats.TotalLessons, strings.Join(scores, ", "), stats.HoursSpent)

	content, err := c.complete(ctx, "", prompt)
	if err != nil {
		log.Printf("Progress analysis failed: %v", err)
		return fallbackProgressAnalysis()
	}

	var analysis ProgressAnalysis
	if err := json.Unmarshal(extractJSON(content), &analysis); err != nil || analysis.ProgressAnalysis == "" {
		log.Printf("Progress analysis was not valid JSON: %v", err)
		return fallbackProgressAnalysis()
	}
	return &analysis
}

func fallbackProgressAnalysis() *ProgressAnalysis {
	return &ProgressAnalysis{
		ProgressAnalysis: "Unable to analyze progress at this time.",
		Recommendations: []string{
			"Continue studying regularly",
			"Review completed lessons",
			"Practice with quizzes",
		},
		PredictedScore: 75,
	}
}
